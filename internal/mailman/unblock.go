package mailman

import (
	"context"
	"fmt"

	"github.com/mailman-tools/mmunblock/internal/htmlform"
)

// LetterResult reports the outcome for one letter page.
type LetterResult struct {
	Letter    string
	Blocked   []BlockedRow   // every delivery-disabled row found
	Histogram map[Reason]int // blocked rows per reason code
	Targets   []BlockedRow   // bounce-disabled rows acted on
	Unblocked int
	Escalated bool // bounce-clear escalation was invoked
	Retried   bool // a second members submission was attempted

	// Populated in dry-run and verbose modes for inspection.
	ActionURL string
	Payload   htmlform.Payload
}

// ProcessLetter runs the full unblock protocol for one letter page:
// fetch, extract bounce-disabled members, resubmit the members form
// with their nomail boxes omitted, verify that the count dropped, and
// on a stubborn page clear the bounce records and retry exactly once.
//
// In dry-run mode nothing is submitted; the result still carries the
// payload and action URL that a live run would have used.
func (c *Client) ProcessLetter(ctx context.Context, letter string, dryRun bool) (*LetterResult, error) {
	result := &LetterResult{Letter: letter}
	pageURL := c.MembersURL(letter)

	form, err := c.fetchMembersForm(ctx, letter, "members")
	if err != nil {
		return nil, err
	}
	if form == nil {
		c.logger.Debug("no members form on page", "letter", letter)
		return result, nil
	}

	result.Blocked = FindBlocked(form)
	result.Histogram = ReasonHistogram(result.Blocked)
	result.Targets = BounceTargets(result.Blocked)
	if len(result.Targets) == 0 {
		return result, nil
	}

	payload, action, err := c.unblockSubmission(pageURL, form, result.Targets)
	if err != nil {
		return nil, err
	}
	result.ActionURL = action
	result.Payload = payload

	if dryRun {
		return result, nil
	}

	before := len(result.Targets)
	remaining, err := c.submitAndRecount(ctx, letter, form.Method, action, payload, "submit")
	if err != nil {
		return nil, err
	}
	if remaining < before {
		result.Unblocked = before - remaining
		return result, nil
	}

	// The change did not take. Mailman sometimes refuses to flip the
	// nomail flag while bounce info is still on record, so clear the
	// records for the targeted members and retry once from a fresh
	// page.
	c.logger.Debug("unblock did not stick, escalating", "letter", letter, "remaining", remaining)
	result.Escalated = true

	changed, err := c.ClearBounces(ctx, Addresses(result.Targets))
	if err != nil {
		return result, err
	}
	if !changed {
		c.logger.Warn("bounce records unchanged, giving up on letter", "letter", letter, "remaining", remaining)
		return result, nil
	}

	result.Retried = true
	remaining, err = c.retryUnblock(ctx, letter, pageURL)
	if err != nil {
		return result, err
	}
	if remaining < before {
		result.Unblocked = before - remaining
	} else {
		c.logger.Warn("members still blocked after bounce-clear retry", "letter", letter, "remaining", remaining)
	}
	return result, nil
}

// retryUnblock rebuilds the target set and payload from a freshly
// fetched page (the bounce clear may have rewritten row tokens) and
// performs the one allowed retry.
func (c *Client) retryUnblock(ctx context.Context, letter, pageURL string) (int, error) {
	form, err := c.fetchMembersForm(ctx, letter, "retry-members")
	if err != nil {
		return 0, err
	}
	if form == nil {
		return 0, nil
	}

	targets := BounceTargets(FindBlocked(form))
	if len(targets) == 0 {
		return 0, nil
	}

	payload, action, err := c.unblockSubmission(pageURL, form, targets)
	if err != nil {
		return len(targets), err
	}
	return c.submitAndRecount(ctx, letter, form.Method, action, payload, "retry-submit")
}

// unblockSubmission builds the members-form payload with the targeted
// nomail checkboxes stripped and the chosen submit button appended,
// exactly the request an admin unticking those boxes would produce.
func (c *Client) unblockSubmission(pageURL string, form *htmlform.Form, targets []BlockedRow) (htmlform.Payload, string, error) {
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.CheckboxName
	}

	name, value, err := SelectMembersSubmit(form)
	if err != nil {
		return nil, "", err
	}

	payload := htmlform.Build(form).WithoutNames(names...).Append(name, value)
	return payload, c.resolveAction(pageURL, form), nil
}

// submitAndRecount performs the members submission and re-fetches the
// page to count how many bounce-disabled rows survived it.
func (c *Client) submitAndRecount(ctx context.Context, letter, method, action string, payload htmlform.Payload, step string) (int, error) {
	c.dumper.Payload(fmt.Sprintf("%s-%s", letter, step), payload)
	c.logger.Debug("submitting member changes", "letter", letter, "url", action, "fields", len(payload))

	page, err := c.session.SubmitForm(ctx, method, action, payload, submitTimeout)
	if err != nil {
		return 0, err
	}
	c.dumper.Page(fmt.Sprintf("%s-%s-result", letter, step), page)

	form, err := c.fetchMembersForm(ctx, letter, step+"-verify")
	if err != nil {
		return 0, err
	}
	if form == nil {
		return 0, nil
	}
	return len(BounceTargets(FindBlocked(form))), nil
}

func (c *Client) fetchMembersForm(ctx context.Context, letter, step string) (*htmlform.Form, error) {
	page, err := c.session.Get(ctx, c.MembersURL(letter), fetchTimeout)
	if err != nil {
		return nil, err
	}
	c.dumper.Page(fmt.Sprintf("%s-%s", letter, step), page)
	return htmlform.Parse(page)
}
