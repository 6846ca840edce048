// Package discovery finds the calls that recently went through the engine by
// scanning raw log text for call identifiers.
package discovery

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/evidence"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/logsource"
)

// CallRecord is a call seen in the logs. FirstSeen is the wall-clock time of
// discovery, not the call start; LogTime is filled only when the first line
// mentioning the call starts with an RFC3339 timestamp.
type CallRecord struct {
	ID        string        `json:"id"`
	FirstSeen time.Time     `json:"first_seen"`
	LogTime   time.Time     `json:"log_time,omitzero"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// DurationHint renders Duration for listings, empty when unknown.
func (c CallRecord) DurationHint() string {
	if c.Duration <= 0 {
		return ""
	}
	return c.Duration.Round(time.Second).String()
}

var (
	// call_id=1761518880.2191, "call_id": "1761518880.2191", Call_ID: 1761518880.2191
	callIDPattern = regexp.MustCompile(`(?i)\b(?:caller_channel_id|call_id)"?\s*[=:]\s*"?([0-9]+\.[0-9]+)`)
	// AudioSocket / ExternalMedia helper channels are infrastructure, not calls.
	helperPattern   = regexp.MustCompile(`(?i)\b(?:audiosocket_channel_id|pending_external_media_id|external_media_id)"?\s*[=:]\s*"?([0-9]+\.[0-9]+)`)
	idShape         = regexp.MustCompile(`^[0-9]+\.[0-9]+$`)
	durationPattern = regexp.MustCompile(`(?i)\b(?:call_)?duration(?:_s|_sec|_seconds)?"?\s*[=:]\s*"?([0-9]+(?:\.[0-9]+)?)`)
)

// Discoverer ranks recent calls found in a log source.
type Discoverer struct {
	Source logsource.Source
	Window time.Duration
	Now    func() time.Time
	Debugf func(format string, args ...any)
}

// Discover returns up to limit calls, newest identifier first. An empty
// result is not an error.
func (d *Discoverer) Discover(ctx context.Context, limit int) ([]CallRecord, error) {
	raw, err := d.Source.Fetch(ctx, d.Window)
	if err != nil {
		return nil, err
	}
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	calls := Scan(raw, now())
	d.debugf("Read %d bytes from %s, unique calls: %d", len(raw), d.Source.Name(), len(calls))
	if limit > 0 && len(calls) > limit {
		calls = calls[:limit]
	}
	return calls, nil
}

// Latest returns the newest call in raw, or ErrNoCallsFound.
func Latest(raw string, now time.Time) (CallRecord, error) {
	calls := Scan(raw, now)
	if len(calls) == 0 {
		return CallRecord{}, fmt.Errorf("%w in log window", evidence.ErrNoCallsFound)
	}
	return calls[0], nil
}

func (d *Discoverer) debugf(format string, args ...any) {
	if d.Debugf != nil {
		d.Debugf(format, args...)
	}
}

// Scan extracts every distinct call identifier in raw, stamped with now and
// sorted newest first.
func Scan(raw string, now time.Time) []CallRecord {
	lines := strings.Split(evidence.StripANSI(raw), "\n")

	excluded := make(map[string]bool)
	for _, line := range lines {
		for _, m := range helperPattern.FindAllStringSubmatch(line, -1) {
			excluded[m[1]] = true
		}
	}

	callMap := make(map[string]*CallRecord)
	for _, line := range lines {
		for _, m := range callIDPattern.FindAllStringSubmatch(line, -1) {
			id := m[1]
			if excluded[id] {
				continue
			}
			rec, exists := callMap[id]
			if !exists {
				rec = &CallRecord{ID: id, FirstSeen: now, LogTime: leadingTimestamp(line)}
				callMap[id] = rec
			}
			if d := durationPattern.FindStringSubmatch(line); len(d) > 1 {
				if secs, err := strconv.ParseFloat(d[1], 64); err == nil && secs > 0 {
					rec.Duration = time.Duration(secs * float64(time.Second))
				}
			}
		}
	}

	calls := make([]CallRecord, 0, len(callMap))
	for _, rec := range callMap {
		calls = append(calls, *rec)
	}
	sort.Slice(calls, func(i, j int) bool {
		return compareIDs(calls[i].ID, calls[j].ID) > 0
	})
	return calls
}

// compareIDs orders "seconds.sequence" identifiers numerically, falling back
// to lexical order when either side does not parse.
func compareIDs(a, b string) int {
	as, aseq, aok := splitID(a)
	bs, bseq, bok := splitID(b)
	if !aok || !bok {
		return strings.Compare(a, b)
	}
	switch {
	case as != bs:
		if as > bs {
			return 1
		}
		return -1
	case aseq != bseq:
		if aseq > bseq {
			return 1
		}
		return -1
	}
	return strings.Compare(a, b)
}

// ValidID reports whether id has the "seconds.sequence" identifier shape.
func ValidID(id string) bool {
	return idShape.MatchString(id)
}

func splitID(id string) (uint64, uint64, bool) {
	head, tail, ok := strings.Cut(id, ".")
	if !ok {
		return 0, 0, false
	}
	secs, err := strconv.ParseUint(head, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	seq, err := strconv.ParseUint(tail, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return secs, seq, true
}

func leadingTimestamp(line string) time.Time {
	field, _, _ := strings.Cut(strings.TrimSpace(line), " ")
	ts, err := time.Parse(time.RFC3339Nano, field)
	if err != nil {
		return time.Time{}
	}
	return ts
}
