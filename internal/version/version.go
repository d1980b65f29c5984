package version

// Version is set at build time via -ldflags "-X github.com/PatrickWalther/wordle-timer-go/internal/version.Version=..."
var Version = "dev"
