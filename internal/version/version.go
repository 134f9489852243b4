package version

// version is overridden at build time via
// -ldflags "-X github.com/hookdeck/chime/internal/version.version=v0.x.y".
var version = "dev"

func Version() string {
	return version
}
