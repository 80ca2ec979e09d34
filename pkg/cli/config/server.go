package config

import "github.com/urfave/cli/v3"

// Server holds server configuration
type Server struct {
	Addr      string
	ScanToken string `masq:"secret"`
}

// Flags returns CLI flags for server configuration
func (c *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server address",
			Value:       "localhost:8080",
			Destination: &c.Addr,
			Sources:     cli.EnvVars("UPWATCH_ADDR"),
		},
		&cli.StringFlag{
			Name:        "scan-token",
			Usage:       "Bearer token required by POST /scans. No authentication when empty",
			Destination: &c.ScanToken,
			Sources:     cli.EnvVars("UPWATCH_SCAN_TOKEN"),
		},
	}
}
