package provision

import (
	"strconv"

	"github.com/zonenet/splashgate/internal/conftx"
	"github.com/zonenet/splashgate/internal/gateway"
)

const portalSection = "nodogsplash.@nodogsplash[0]"

// GatewayBatch is the core captive-portal phase. The gateway name is the
// router identity the backend matches vouchers against; losing it would
// orphan the device, so it must succeed.
func GatewayBatch(routerID, webroot string) conftx.Batch {
	return conftx.Batch{
		Phase: "gateway",
		Mutations: []conftx.Mutation{
			{Op: conftx.OpSet, Key: portalSection + ".enabled", Value: "1"},
			{Op: conftx.OpSet, Key: portalSection + ".gatewayinterface", Value: "br-lan"},
			{Op: conftx.OpSet, Key: portalSection + ".gatewayname", Value: routerID, MustSucceed: true},
			{Op: conftx.OpSet, Key: portalSection + ".gatewayport", Value: strconv.Itoa(gateway.ListenPort)},
			{Op: conftx.OpSet, Key: portalSection + ".maxclients", Value: "250"},
			{Op: conftx.OpSet, Key: portalSection + ".webroot", Value: webroot},
			{Op: conftx.OpSet, Key: portalSection + ".splashpage", Value: "splash.html"},
		},
	}
}

// FirewallBatch rebuilds the daemon's access-control lists. Each list is
// cleared before re-adding so re-running an install never duplicates
// entries.
func FirewallBatch() conftx.Batch {
	return conftx.Batch{
		Phase: "firewall",
		Mutations: []conftx.Mutation{
			{Op: conftx.OpDelete, Key: portalSection + ".users_to_router"},
			{Op: conftx.OpAddList, Key: portalSection + ".users_to_router", Value: "allow tcp port 53"},
			{Op: conftx.OpAddList, Key: portalSection + ".users_to_router", Value: "allow udp port 53"},
			{Op: conftx.OpAddList, Key: portalSection + ".users_to_router", Value: "allow udp port 67"},
			{Op: conftx.OpAddList, Key: portalSection + ".users_to_router", Value: "allow tcp port " + strconv.Itoa(gateway.ListenPort)},
			{Op: conftx.OpDelete, Key: portalSection + ".preauthenticated_users"},
			{Op: conftx.OpAddList, Key: portalSection + ".preauthenticated_users", Value: "allow tcp port 53"},
			{Op: conftx.OpAddList, Key: portalSection + ".preauthenticated_users", Value: "allow udp port 53"},
			{Op: conftx.OpDelete, Key: portalSection + ".authenticated_users"},
			{Op: conftx.OpAddList, Key: portalSection + ".authenticated_users", Value: "allow all"},
		},
	}
}

// WhitelistBatch exempts the administrator's device from the captive
// portal. This commits before the wireless phase so the operator keeps
// access no matter what happens afterwards; the add itself must succeed
// for the same reason.
func WhitelistBatch(adminMAC string) conftx.Batch {
	return conftx.Batch{
		Phase: "whitelist",
		Mutations: []conftx.Mutation{
			{Op: conftx.OpDelete, Key: portalSection + ".trustedmac"},
			{Op: conftx.OpAddList, Key: portalSection + ".trustedmac", Value: adminMAC, MustSucceed: true},
		},
	}
}

// WirelessBatch points the radio at the operator's SSID. The network is
// left open; authentication happens at the portal.
func WirelessBatch(ssid string) conftx.Batch {
	return conftx.Batch{
		Phase: "wireless",
		Mutations: []conftx.Mutation{
			{Op: conftx.OpSet, Key: "wireless.@wifi-device[0].disabled", Value: "0"},
			{Op: conftx.OpSet, Key: "wireless.@wifi-iface[0].mode", Value: "ap"},
			{Op: conftx.OpSet, Key: "wireless.@wifi-iface[0].ssid", Value: ssid, MustSucceed: true},
			{Op: conftx.OpSet, Key: "wireless.@wifi-iface[0].encryption", Value: "none"},
		},
	}
}

// TeardownBatch synthesizes the minimal default configuration uninstall
// leaves behind: daemon disabled, portal-specific lists cleared.
func TeardownBatch() conftx.Batch {
	return conftx.Batch{
		Phase: "teardown",
		Mutations: []conftx.Mutation{
			{Op: conftx.OpSet, Key: portalSection + ".enabled", Value: "0"},
			{Op: conftx.OpDelete, Key: portalSection + ".gatewayname"},
			{Op: conftx.OpDelete, Key: portalSection + ".trustedmac"},
			{Op: conftx.OpDelete, Key: portalSection + ".users_to_router"},
			{Op: conftx.OpDelete, Key: portalSection + ".preauthenticated_users"},
			{Op: conftx.OpDelete, Key: portalSection + ".authenticated_users"},
		},
	}
}

// WifiResetBatch returns the radio to its factory SSID. Only applied when
// the operator confirms the reset at uninstall time.
func WifiResetBatch() conftx.Batch {
	return conftx.Batch{
		Phase: "wifi-reset",
		Mutations: []conftx.Mutation{
			{Op: conftx.OpSet, Key: "wireless.@wifi-iface[0].ssid", Value: "OpenWrt"},
			{Op: conftx.OpSet, Key: "wireless.@wifi-iface[0].encryption", Value: "none"},
		},
	}
}
