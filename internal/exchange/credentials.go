package exchange

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Credential sources, in priority order: environment variables
// (a .env file is loaded first if present), then the key files in the
// base directory.
const (
	EnvAPIKey    = "BINANCE_API_KEY"
	EnvAPISecret = "BINANCE_API_SECRET"
)

// Credentials holds a Binance API key pair.
type Credentials struct {
	APIKey    string
	APISecret string
	Source    string
}

// IsValid reports whether both parts are present.
func (c Credentials) IsValid() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// LoadCredentials resolves the Binance key pair. baseDir is where the
// legacy b_key.txt / b_secret.txt files live. Missing credentials are
// not an error here: paper mode runs without them, and the caller
// decides whether live trading can proceed.
func LoadCredentials(baseDir string) Credentials {
	// .env in the working directory, if any. Existing env vars win.
	_ = godotenv.Load()

	key := strings.TrimSpace(os.Getenv(EnvAPIKey))
	secret := strings.TrimSpace(os.Getenv(EnvAPISecret))
	if key != "" && secret != "" {
		return Credentials{APIKey: key, APISecret: secret, Source: "env"}
	}

	key = readCredentialFile(filepath.Join(baseDir, "b_key.txt"))
	secret = readCredentialFile(filepath.Join(baseDir, "b_secret.txt"))
	if key != "" && secret != "" {
		return Credentials{APIKey: key, APISecret: secret, Source: "file"}
	}

	return Credentials{}
}

func readCredentialFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
