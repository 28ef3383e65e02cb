package dynamic

import (
	"encoding/json"
	"runtime/debug"
	"strings"

	"github.com/aura-studio/lambda-runtime/execution"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Meta is the document served for /meta paths.
type Meta struct {
	Function FunctionMeta `json:"function"`
	Build    BuildMeta    `json:"build"`
	Packages PackagesMeta `json:"packages"`
}

type FunctionMeta struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	MemoryLimitMB int    `json:"memoryLimitMB"`
	LogGroupName  string `json:"logGroupName,omitempty"`
	LogStreamName string `json:"logStreamName,omitempty"`
}

// BuildMeta identifies the bootstrap binary.
type BuildMeta struct {
	Module    string `json:"module"`
	Version   string `json:"version"`
	GoVersion string `json:"goVersion"`
	Revision  string `json:"revision,omitempty"`
	Time      string `json:"time,omitempty"`
}

type PackagesMeta struct {
	Namespace       string   `json:"namespace,omitempty"`
	DefaultVersion  string   `json:"defaultVersion,omitempty"`
	LocalWarehouse  string   `json:"localWarehouse,omitempty"`
	RemoteWarehouse string   `json:"remoteWarehouse,omitempty"`
	Static          []string `json:"static,omitempty"`
}

func readBuildMeta() BuildMeta {
	var b BuildMeta
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	b.Module = info.Main.Path
	b.Version = info.Main.Version
	b.GoVersion = info.GoVersion
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			b.Revision = s.Value
		case "vcs.time":
			b.Time = s.Value
		}
	}
	return b
}

// NewMeta describes the function identity and the package setup of o.
func NewMeta(env execution.Environment, o *Options) Meta {
	m := Meta{
		Function: FunctionMeta{
			Name:          env.FunctionName,
			Version:       env.FunctionVersion,
			MemoryLimitMB: env.MemoryLimitMB,
			LogGroupName:  env.LogGroupName,
			LogStreamName: env.LogStreamName,
		},
		Build: readBuildMeta(),
		Packages: PackagesMeta{
			Namespace:       o.PackageNamespace,
			DefaultVersion:  o.PackageDefaultVersion,
			LocalWarehouse:  o.LocalWarehouse,
			RemoteWarehouse: o.RemoteWarehouse,
		},
	}
	for _, p := range o.StaticPackages {
		m.Packages.Static = append(m.Packages.Static, p.Package+"/"+p.Version)
	}
	return m
}

// JSON renders m with the top-level keys of tunnelMeta added. Keys m already
// has are kept; tunnelMeta that is not a JSON object is ignored.
func (m Meta) JSON(tunnelMeta string) string {
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	out := string(b)

	tunnel := gjson.Parse(tunnelMeta)
	if !tunnel.IsObject() {
		return out
	}
	tunnel.ForEach(func(key, value gjson.Result) bool {
		path := escapePath(key.String())
		if gjson.Get(out, path).Exists() {
			return true
		}
		if merged, err := sjson.SetRaw(out, path, value.Raw); err == nil {
			out = merged
		}
		return true
	})
	return out
}

var pathEscaper = strings.NewReplacer(
	`\`, `\\`, `.`, `\.`, `*`, `\*`, `?`, `\?`,
	`|`, `\|`, `#`, `\#`, `@`, `\@`, `:`, `\:`,
)

func escapePath(key string) string {
	return pathEscaper.Replace(key)
}
