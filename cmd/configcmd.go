package main

import (
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/caseload-router/internal/config"
)

const redacted = "********"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(redact(*cfg)); err != nil {
			return eris.Wrap(err, "encode config")
		}
		return eris.Wrap(enc.Close(), "encode config")
	},
}

// redact blanks credentials. The value copy keeps cfg intact.
func redact(c config.Config) config.Config {
	if c.Geocode.GoogleAPIKey != "" {
		c.Geocode.GoogleAPIKey = redacted
	}
	if c.Redis.Password != "" {
		c.Redis.Password = redacted
	}
	if c.Store.DatabaseURL != "" {
		c.Store.DatabaseURL = redactURL(c.Store.DatabaseURL)
	}
	c.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	return c
}

// redactURL masks the password in a connection URL. Keyword DSNs carrying a
// password are masked whole.
func redactURL(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		if strings.Contains(dsn, "password=") {
			return redacted
		}
		return dsn
	}
	return u.Redacted()
}

func init() {
	rootCmd.AddCommand(configCmd)
}
