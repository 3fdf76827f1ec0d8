package assign

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Record is one already-parsed roster row. Numeric fields stay raw so that
// every conversion failure is reported by the normalizer with its line.
type Record struct {
	Line        int
	Name        string
	Contact     string
	ID          string
	Preferences []string // most preferred first
	Quota       string   // empty = deployment default
	Priority    string   // empty = none
}

// Token matching modes for preference tokens.
const (
	MatchLabel      = "label"       // token must equal a group label
	MatchFirstField = "first-field" // token's first whitespace-separated field must equal a label
)

// Cohort orderings.
const (
	OrderInput    = "input"
	OrderLastName = "last-name"
	OrderShuffle  = "shuffle"
)

// ValidTokenMatches is the set of recognized token matching modes.
var ValidTokenMatches = map[string]bool{"": true, MatchLabel: true, MatchFirstField: true}

// ValidOrders is the set of recognized cohort orderings.
var ValidOrders = map[string]bool{"": true, OrderInput: true, OrderLastName: true, OrderShuffle: true}

// NormalizeOptions configures the preference normalizer.
type NormalizeOptions struct {
	DefaultQuota int    // required assignments when a record has no override (must be > 0)
	DefaultRank  int    // rank of unlisted groups; 0 = resolved over the cohort, see ResolveDefaultRank
	Prioritize   bool   // read priority tiers; otherwise every priority is 0
	Strict       bool   // abort on the first batch of input errors
	EmailDomain  string // appended to contacts missing a domain; empty = leave as is
	TokenMatch   string // MatchLabel (default) or MatchFirstField
	Order        string // OrderInput (default), OrderLastName or OrderShuffle
}

// InputReport summarizes what the normalizer did with the roster.
type InputReport struct {
	Records    int
	Accepted   int
	Duplicates int // accepted records that replaced an earlier one
	Rejected   []*RecordError
}

// Err combines every rejected record into one error, nil if none.
func (r *InputReport) Err() error {
	var err error
	for _, re := range r.Rejected {
		err = multierr.Append(err, re)
	}
	return err
}

// ResolveDefaultRank returns the effective default rank. An explicit
// defaultRank is kept as is. Otherwise it is the number of groups, raised to
// worstStated+1 when some entity states a preference at or past that
// position (repeated tokens still take up positions).
func ResolveDefaultRank(defaultRank int, topo *Topology, worstStated int) int {
	if defaultRank > 0 {
		return defaultRank
	}
	if worstStated+1 > len(topo.Groups) {
		return worstStated + 1
	}
	return len(topo.Groups)
}

// Normalize turns raw records into a deduplicated, ordered cohort.
//
// Records that fail validation are counted in the report. In strict mode any
// failure aborts with the combined error wrapped in ErrInputInvalid; otherwise
// the failing records are left out and the run continues.
// rng is only drawn from when opts.Order is OrderShuffle.
func Normalize(records []Record, topo *Topology, opts NormalizeOptions, rng *rand.Rand) (*Cohort, *InputReport, error) {
	if opts.DefaultQuota <= 0 {
		return nil, nil, fmt.Errorf("default quota must be positive, got %d", opts.DefaultQuota)
	}
	if !ValidTokenMatches[opts.TokenMatch] {
		return nil, nil, fmt.Errorf("unknown token match mode %q", opts.TokenMatch)
	}
	if !ValidOrders[opts.Order] {
		return nil, nil, fmt.Errorf("unknown order %q", opts.Order)
	}

	report := &InputReport{Records: len(records)}
	cohort := &Cohort{}
	byKey := make(map[IdentityKey]int)

	for i := range records {
		rec := &records[i]
		ent, err := normalizeRecord(rec, topo, opts)
		if err != nil {
			re := &RecordError{Line: rec.Line, Identity: fmt.Sprintf("%s <%s>", rec.Name, rec.Contact), Err: err}
			report.Rejected = append(report.Rejected, re)
			continue
		}
		report.Accepted++
		key := ent.Key()
		if pos, dup := byKey[key]; dup {
			report.Duplicates++
			logrus.Debugf("line %d replaces earlier record for %s", rec.Line, ent.Identity)
			cohort.Entities[pos] = ent
			continue
		}
		byKey[key] = len(cohort.Entities)
		cohort.Entities = append(cohort.Entities, ent)
	}

	worst := -1
	for _, ent := range cohort.Entities {
		for _, r := range ent.Ranks {
			if r > worst {
				worst = r
			}
		}
	}
	cohort.DefaultRank = ResolveDefaultRank(opts.DefaultRank, topo, worst)
	for _, ent := range cohort.Entities {
		fillUnlisted(ent.Ranks, cohort.DefaultRank)
	}

	if len(report.Rejected) > 0 {
		if opts.Strict {
			return nil, report, fmt.Errorf("%w: %d of %d records rejected: %w",
				ErrInputInvalid, len(report.Rejected), report.Records, report.Err())
		}
		for _, re := range report.Rejected {
			logrus.Warnf("skipping %v", re)
		}
	}

	switch opts.Order {
	case OrderLastName:
		sort.SliceStable(cohort.Entities, func(a, b int) bool {
			return lastName(cohort.Entities[a].Name) < lastName(cohort.Entities[b].Name)
		})
	case OrderShuffle:
		rng.Shuffle(len(cohort.Entities), func(a, b int) {
			cohort.Entities[a], cohort.Entities[b] = cohort.Entities[b], cohort.Entities[a]
		})
	}
	return cohort, report, nil
}

// normalizeRecord returns an entity whose unlisted groups still hold
// unlistedRank; Normalize fills them once the default rank is known.
func normalizeRecord(rec *Record, topo *Topology, opts NormalizeOptions) (*Entity, error) {
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInputInvalid)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(rec.ID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: non-numeric ID %q", ErrInputInvalid, rec.ID)
	}

	quota := opts.DefaultQuota
	if q := strings.TrimSpace(rec.Quota); q != "" {
		quota, err = strconv.Atoi(q)
		if err != nil {
			return nil, fmt.Errorf("%w: non-numeric quota %q", ErrInputInvalid, rec.Quota)
		}
		if quota <= 0 || quota > len(topo.Groups) {
			return nil, fmt.Errorf("%w: quota %d outside [1, %d]", ErrInputInvalid, quota, len(topo.Groups))
		}
	}

	priority := 0
	if opts.Prioritize {
		p := strings.TrimSpace(rec.Priority)
		if p == "" {
			return nil, fmt.Errorf("%w: missing priority", ErrInputInvalid)
		}
		priority, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: non-numeric priority %q", ErrInputInvalid, rec.Priority)
		}
		if priority < 0 {
			return nil, fmt.Errorf("%w: negative priority %d", ErrInputInvalid, priority)
		}
	}

	ranks, labels, err := statedRanks(rec.Preferences, topo, opts.TokenMatch)
	if err != nil {
		return nil, err
	}
	if opts.DefaultRank > 0 {
		if err := checkWorstRank(ranks, labels, topo, opts.DefaultRank); err != nil {
			return nil, err
		}
	}

	return &Entity{
		Identity: Identity{
			Name:    name,
			Contact: FixContact(strings.TrimSpace(rec.Contact), opts.EmailDomain),
			ID:      id,
		},
		Ranks:       ranks,
		Quota:       quota,
		Priority:    priority,
		Preferences: labels,
	}, nil
}

// BuildRankVector converts an ordered list of preference tokens into a
// complete rank vector over the topology's groups.
//
// A token's rank is its position in the list (blank tokens are skipped and do
// not count). Repeated groups keep their first, best rank but still take up a
// position. Groups that are never mentioned get defaultRank, and a stated
// rank worse than defaultRank is an error. The resolved labels are returned
// in stated order without repeats.
func BuildRankVector(tokens []string, topo *Topology, defaultRank int, match string) (RankVector, []string, error) {
	ranks, labels, err := statedRanks(tokens, topo, match)
	if err != nil {
		return nil, nil, err
	}
	if err := checkWorstRank(ranks, labels, topo, defaultRank); err != nil {
		return nil, nil, err
	}
	fillUnlisted(ranks, defaultRank)
	return ranks, labels, nil
}

// unlistedRank marks groups an entity did not mention until the default
// rank is resolved.
const unlistedRank = -1

func statedRanks(tokens []string, topo *Topology, match string) (RankVector, []string, error) {
	ranks := make(RankVector, len(topo.Groups))
	for i := range ranks {
		ranks[i] = unlistedRank
	}
	var labels []string
	var unknown []string
	pos := 0
	for _, raw := range tokens {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			continue
		}
		rank := pos
		pos++
		gi, ok := matchToken(tok, topo, match)
		if !ok {
			unknown = append(unknown, tok)
			continue
		}
		if ranks[gi] != unlistedRank {
			continue
		}
		ranks[gi] = rank
		labels = append(labels, topo.Groups[gi].Label)
	}
	if len(unknown) > 0 {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownPreference, unknown)
	}
	return ranks, labels, nil
}

func checkWorstRank(ranks RankVector, labels []string, topo *Topology, defaultRank int) error {
	for _, label := range labels {
		gi, _ := topo.GroupIndex(label)
		if ranks[gi] > defaultRank {
			return fmt.Errorf("%w: preference %q at rank %d is worse than default rank %d",
				ErrInputInvalid, label, ranks[gi], defaultRank)
		}
	}
	return nil
}

func fillUnlisted(ranks RankVector, defaultRank int) {
	for i, r := range ranks {
		if r == unlistedRank {
			ranks[i] = defaultRank
		}
	}
}

func matchToken(tok string, topo *Topology, match string) (int, bool) {
	if match == MatchFirstField {
		fields := strings.Fields(tok)
		if len(fields) == 0 {
			return 0, false
		}
		tok = fields[0]
	}
	return topo.GroupIndex(tok)
}

// FixContact completes an address with the deployment's mail domain.
// "jdoe@" becomes "jdoe@domain" and "jdoe" becomes "jdoe@domain".
func FixContact(contact, domain string) string {
	if domain == "" || contact == "" {
		return contact
	}
	switch {
	case strings.HasSuffix(contact, "@"):
		return contact + domain
	case !strings.Contains(contact, "@"):
		return contact + "@" + domain
	}
	return contact
}

func lastName(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
