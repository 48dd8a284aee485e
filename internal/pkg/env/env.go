package env

import (
	"os"

	"github.com/joho/godotenv"
)

// SetupEnvFile loads the first .env file found and exports its values to the
// process environment so config.Load picks them up. Variables already set in
// the environment win. Containers usually pass plain environment variables,
// so a missing file is not an error.
func SetupEnvFile() bool {
	envFiles := []string{
		".env",          // Current directory
		"../../.env",    // From cmd/tochigi to project root
		"../../../.env", // Fallback for deeper nesting
	}

	for _, envFile := range envFiles {
		values, err := godotenv.Read(envFile)
		if err != nil {
			continue
		}
		for k, v := range values {
			if _, exists := os.LookupEnv(k); !exists {
				_ = os.Setenv(k, v)
			}
		}
		return true
	}
	return false
}
