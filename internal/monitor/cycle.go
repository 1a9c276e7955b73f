package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"substackmon/internal/logging"
	"substackmon/internal/summarizer"
)

const defaultSubject = "Summary of the latest Substack post"

// runCycle executes one pipeline attempt. It never panics past safeCycle
// and maps every collaborator failure to an Outcome; the marker moves only
// on full success.
func (m *Monitor) runCycle(ctx context.Context) CycleResult {
	result := CycleResult{At: time.Now()}

	postURL, err := m.source.LatestPostURL(ctx)
	if err != nil || strings.TrimSpace(postURL) == "" {
		if err == nil {
			err = errors.New("empty post url")
		}
		result.Outcome = OutcomeFetchFailed
		result.Err = err
		m.logger.Warn("failed to retrieve latest post url", logging.Error(err))
		return result
	}
	result.PostURL = postURL

	last, err := m.store.LastProcessed(ctx)
	if err != nil {
		result.Outcome = OutcomeFetchFailed
		result.Err = fmt.Errorf("read marker: %w", err)
		m.logger.Error("failed to read processed marker", logging.Error(err))
		return result
	}
	if postURL == last {
		result.Outcome = OutcomeNoNewPost
		m.logger.Debug("no new posts found", logging.String("post_url", postURL))
		return result
	}

	m.logger.Info("new post found", logging.String("post_url", postURL))

	text, err := m.source.PostText(ctx, postURL)
	if err != nil {
		result.Outcome = OutcomeExtractFailed
		result.Err = err
		m.logger.Warn("failed to extract post text", logging.String("post_url", postURL), logging.Error(err))
		return result
	}

	summary, err := m.summarizer.Summarize(ctx, text)
	if err != nil {
		if errors.Is(err, summarizer.ErrBlocked) {
			result.Outcome = OutcomeSummarizeBlocked
			m.logger.Warn("summarization blocked", logging.String("post_url", postURL), logging.Error(err))
		} else {
			result.Outcome = OutcomeSummarizeFailed
			m.logger.Warn("summarization failed", logging.String("post_url", postURL), logging.Error(err))
		}
		result.Err = err
		return result
	}

	htmlBody := fmt.Sprintf("<p>Summary of <a href=%q>%s</a>:</p>\n%s", postURL, postURL, summary)
	if err := m.notifier.Deliver(ctx, m.subject, htmlBody); err != nil {
		result.Outcome = OutcomeDeliveryFailed
		result.Err = err
		m.logger.Warn("delivery failed", logging.String("post_url", postURL), logging.Error(err))
		return result
	}

	if err := m.store.RecordDelivery(ctx, postURL, m.subject, summary); err != nil {
		// The email is already out; a lost marker write means the next
		// cycle re-notifies this post.
		m.logger.Error("failed to persist processed marker", logging.String("post_url", postURL), logging.Error(err))
	}

	result.Outcome = OutcomeDelivered
	m.logger.Info("summary delivered", logging.String("post_url", postURL))
	return result
}

// SubjectFor derives an email subject from the blog URL, e.g.
// "https://eas503.substack.com" becomes "Summary of the latest Eas503
// Substack post".
func SubjectFor(blogURL string) string {
	parsed, err := url.Parse(blogURL)
	if err != nil || parsed.Host == "" {
		return defaultSubject
	}
	name, _, _ := strings.Cut(parsed.Host, ".")
	if name == "" || name == "www" {
		return defaultSubject
	}
	title := cases.Title(language.English).String(name)
	return fmt.Sprintf("Summary of the latest %s Substack post", title)
}
