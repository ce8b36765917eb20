// Package inject substitutes runtime values into staged portal templates.
// Substitution is a structured pass over a fixed whitelist of placeholders;
// values are always treated as literal text, so ids or URLs containing
// slashes, ampersands or dollar signs cannot corrupt the output.
package inject

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Placeholder tokens recognized in portal templates.
const (
	TokenRouterID   = "__ROUTER_ID__"
	TokenContractID = "__CONTRACT_ID__"
	TokenServerURL  = "__SERVER_URL__"
	TokenWifiSSID   = "__WIFI_SSID__"
)

// legacyGatewayID matches the inline assignment older splash pages carry
// instead of the __ROUTER_ID__ token.
var legacyGatewayID = regexp.MustCompile(`var\s+gatewayId\s*=\s*"[^"]*";`)

// Values carries the concrete strings substituted into portal templates.
type Values struct {
	RouterID   string
	ContractID string
	ServerURL  string
	WifiSSID   string
}

func (v Values) placeholders() [][2]string {
	return [][2]string{
		{TokenRouterID, v.RouterID},
		{TokenContractID, v.ContractID},
		{TokenServerURL, v.ServerURL},
		{TokenWifiSSID, v.WifiSSID},
	}
}

// FileResult is the outcome of injecting one file.
type FileResult struct {
	Path     string
	Replaced int
	Err      error
}

// Report summarizes an injection pass.
type Report struct {
	Files []FileResult
}

// Failed returns the per-file failures in the pass.
func (r Report) Failed() []FileResult {
	var failed []FileResult
	for _, f := range r.Files {
		if f.Err != nil {
			failed = append(failed, f)
		}
	}
	return failed
}

// Injector performs placeholder substitution across staged files.
type Injector struct {
	log *zap.Logger
}

// New creates an Injector.
func New(log *zap.Logger) *Injector {
	return &Injector{log: log}
}

// Inject substitutes vals into every file. Each file is rewritten through a
// temporary sibling and atomically renamed, so the original survives any
// mid-write failure. A file whose substituted content comes out empty is
// left untouched and reported as a per-file failure; other files still
// proceed. A missing or empty entryPoint after the pass is fatal.
func (inj *Injector) Inject(files []string, entryPoint string, vals Values) (Report, error) {
	var report Report
	for _, path := range files {
		res := inj.injectFile(path, vals)
		if res.Err != nil {
			inj.log.Warn("template injection failed for file",
				zap.String("file", path), zap.Error(res.Err))
		} else {
			inj.log.Debug("template injected",
				zap.String("file", path), zap.Int("replaced", res.Replaced))
		}
		report.Files = append(report.Files, res)
	}

	info, err := os.Stat(entryPoint)
	if err != nil {
		return report, fmt.Errorf("entry point %s missing after injection: %w", entryPoint, err)
	}
	if info.Size() == 0 {
		return report, fmt.Errorf("entry point %s empty after injection", entryPoint)
	}
	return report, nil
}

func (inj *Injector) injectFile(path string, vals Values) FileResult {
	res := FileResult{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		res.Err = fmt.Errorf("read: %w", err)
		return res
	}
	info, err := os.Stat(path)
	if err != nil {
		res.Err = fmt.Errorf("stat: %w", err)
		return res
	}

	content := string(data)
	for _, pair := range vals.placeholders() {
		token, value := pair[0], pair[1]
		if n := strings.Count(content, token); n > 0 {
			content = strings.ReplaceAll(content, token, value)
			res.Replaced += n
		}
	}
	if matches := legacyGatewayID.FindAllStringIndex(content, -1); len(matches) > 0 {
		content = legacyGatewayID.ReplaceAllLiteralString(content,
			`var gatewayId = "`+vals.RouterID+`";`)
		res.Replaced += len(matches)
	}

	if len(content) == 0 {
		res.Err = fmt.Errorf("substitution produced empty file, original kept")
		return res
	}

	tmp := path + ".inject"
	if err := os.WriteFile(tmp, []byte(content), info.Mode().Perm()); err != nil {
		res.Err = fmt.Errorf("write temp sibling: %w", err)
		return res
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		res.Err = fmt.Errorf("replace original: %w", err)
		return res
	}
	return res
}
