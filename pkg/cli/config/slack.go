package config

import (
	"github.com/m-mizutani/upwatch/pkg/domain/interfaces"
	upslack "github.com/m-mizutani/upwatch/pkg/infra/slack"
	"github.com/urfave/cli/v3"
)

// Slack holds scan notification configuration
type Slack struct {
	Token   string `masq:"secret"`
	Channel string
}

// Flags returns CLI flags for Slack configuration
func (c *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-token",
			Usage:       "Slack bot token to post scan summaries",
			Destination: &c.Token,
			Sources:     cli.EnvVars("UPWATCH_SLACK_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel ID of scan summaries",
			Destination: &c.Channel,
			Sources:     cli.EnvVars("UPWATCH_SLACK_CHANNEL"),
		},
	}
}

// Sink returns the Slack notifier, or nil when not configured
func (c *Slack) Sink() interfaces.ScanSink {
	if c.Token == "" || c.Channel == "" {
		return nil
	}
	return upslack.New(c.Token, c.Channel)
}
