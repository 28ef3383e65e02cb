// Package dynamic loads tunnel packages and invokes them by path.
package dynamic

import (
	"fmt"
	"strings"

	"github.com/aura-studio/dynamic"
	"github.com/charmbracelet/log"
)

type Package struct {
	Package string
	Version string
	Tunnel  dynamic.Tunnel
}

type Dynamic struct {
	*Options
	meta Meta
}

func NewDynamic(opts ...Option) *Dynamic {
	d := &Dynamic{
		Options: NewOptions(opts...),
	}
	d.meta = NewMeta(d.Environment, d.Options)

	d.InstallPackages()

	return d
}

func (d *Dynamic) InstallPackages() {
	if d.Os != "" {
		dynamic.DynamicOS = d.Os
	}
	if d.Arch != "" {
		dynamic.DynamicArch = d.Arch
	}
	if d.Compiler != "" {
		dynamic.DynamicCompiler = d.Compiler
	}
	if d.Variant != "" {
		dynamic.DynamicVariant = d.Variant
	}

	dynamic.UseWarehouse(d.LocalWarehouse, d.RemoteWarehouse)

	if d.PackageNamespace != "" {
		dynamic.UseNamespace(d.PackageNamespace)
	}

	if d.PackageDefaultVersion != "" {
		dynamic.UseDefaultVersion(d.PackageDefaultVersion)
	}

	for _, p := range d.StaticPackages {
		dynamic.RegisterPackage(p.Package, p.Version, p.Tunnel)
	}

	for _, p := range d.PreloadPackages {
		if _, err := dynamic.GetPackage(p.Package, p.Version); err != nil {
			log.Warn("preload package failed", "namespace", d.PackageNamespace, "package", p.Package, "version", p.Version, "err", err)
		}
	}
}

func (d *Dynamic) GetPackage(pkg string, version string) (dynamic.Tunnel, error) {
	return dynamic.GetPackage(pkg, version)
}

// SplitPath splits "/pkg/version/route..." into its parts. The route keeps a
// leading slash and is "/" when absent.
func SplitPath(path string) (pkg, version, route string, err error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("invalid path: %q", path)
	}
	return parts[0], parts[1], "/" + strings.Join(parts[2:], "/"), nil
}

// Invoke resolves the tunnel named by path and calls it with req.
func (d *Dynamic) Invoke(path string, req string) (string, error) {
	pkg, version, route, err := SplitPath(path)
	if err != nil {
		return "", err
	}

	tunnel, err := d.GetPackage(pkg, version)
	if err != nil {
		return "", err
	}

	return tunnel.Invoke(route, req), nil
}

// Meta describes the runtime, merged with the tunnel's own meta when path
// names a loadable package.
func (d *Dynamic) Meta(path string) string {
	var tunnelMeta string
	if pkg, version, _, err := SplitPath(path); err == nil {
		if tunnel, err := d.GetPackage(pkg, version); err == nil {
			tunnelMeta = tunnel.Meta()
		}
	}
	return d.meta.JSON(tunnelMeta)
}
