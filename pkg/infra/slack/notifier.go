package slack

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/upwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
	"github.com/slack-go/slack"
)

// maxListed bounds the number of entries per section of a message
const maxListed = 30

// Notifier posts the summary of a finished scan to a Slack channel
type Notifier struct {
	client  *slack.Client
	channel string
}

var _ interfaces.ScanSink = (*Notifier)(nil)

func New(token, channel string, opts ...slack.Option) *Notifier {
	return &Notifier{
		client:  slack.New(token, opts...),
		channel: channel,
	}
}

func (n *Notifier) PublishScan(ctx context.Context, report *model.ScanReport) error {
	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(FormatReport(report), false),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to post scan report",
			goerr.V("channel", n.channel),
			goerr.V("scan_id", report.ID),
		)
	}
	return nil
}

// FormatReport renders a scan report as Slack mrkdwn
func FormatReport(report *model.ScanReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*Updates found in %d of %d targets*", report.UpdateCount, report.TargetCount)
	writeEntries(&b, report.Updated)

	if len(report.Manual) > 0 {
		fmt.Fprintf(&b, "\n*Needs manual check (%d)*", len(report.Manual))
		writeEntries(&b, report.Manual)
	}

	if len(report.Failures) > 0 {
		fmt.Fprintf(&b, "\n*Failed (%d)*", len(report.Failures))
		for i, failure := range report.Failures {
			if i == maxListed {
				fmt.Fprintf(&b, "\n… and %d more", len(report.Failures)-maxListed)
				break
			}
			fmt.Fprintf(&b, "\n• %s: `%s`", failure.Name, failure.Error)
		}
	}

	fmt.Fprintf(&b, "\n_scan %s, %s_", report.ID, report.Duration().Round(time.Millisecond))
	return b.String()
}

func writeEntries(b *strings.Builder, entries []model.LedgerEntry) {
	for i, entry := range entries {
		if i == maxListed {
			fmt.Fprintf(b, "\n… and %d more", len(entries)-maxListed)
			return
		}
		fmt.Fprintf(b, "\n• <%s|%s> (%s)", entry.Location, entry.Name, entry.VCS)
	}
}
