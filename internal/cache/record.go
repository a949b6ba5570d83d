package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Reserved hashes for the two singleton records kept alongside commits.
const (
	OverallHash = "__overall__"
	ChartHash   = "__chart__"
)

// Kind tags the variant held by a Record.
type Kind int

const (
	KindCommit Kind = iota
	KindOverall
	KindChart
)

func (k Kind) String() string {
	switch k {
	case KindCommit:
		return "commit"
	case KindOverall:
		return "overall"
	case KindChart:
		return "chart"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Commit is one analyzed commit. Summary stays empty until the scheduler
// (or the trivial classifier) fills it.
type Commit struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
	Diff    string    `json:"diff"`
	Summary string    `json:"summary,omitempty"`
}

// DisplaySummary falls back to the commit message when no summary exists.
func (c Commit) DisplaySummary() string {
	if c.Summary != "" {
		return c.Summary
	}
	return c.Message
}

// OverallSummary is the project-wide narrative. NumberOfCommits records the
// limit it was generated for.
type OverallSummary struct {
	Summary         string    `json:"summary"`
	NumberOfCommits int       `json:"numberOfCommits"`
	Date            time.Time `json:"date"`
	Message         string    `json:"message"`
	Author          string    `json:"author"`
}

// ChartSnapshot is the persisted commits-per-day chart.
type ChartSnapshot struct {
	Config ChartConfig `json:"config"`
	Date   time.Time   `json:"date"`
}

// Record is a tagged union over the three kinds of element stored in the
// cache file. Exactly one of the pointers is set, matching Kind.
type Record struct {
	Kind    Kind
	Commit  *Commit
	Overall *OverallSummary
	Chart   *ChartSnapshot
}

var errMalformedRecord = errors.New("malformed record")

type overallRecord struct {
	Hash string `json:"hash"`
	OverallSummary
}

type chartRecord struct {
	Hash string `json:"hash"`
	ChartSnapshot
}

func (r Record) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case KindCommit:
		if r.Commit == nil {
			return nil, fmt.Errorf("%w: commit record without payload", errMalformedRecord)
		}
		return json.Marshal(r.Commit)
	case KindOverall:
		if r.Overall == nil {
			return nil, fmt.Errorf("%w: overall record without payload", errMalformedRecord)
		}
		return json.Marshal(overallRecord{Hash: OverallHash, OverallSummary: *r.Overall})
	case KindChart:
		if r.Chart == nil {
			return nil, fmt.Errorf("%w: chart record without payload", errMalformedRecord)
		}
		return json.Marshal(chartRecord{Hash: ChartHash, ChartSnapshot: *r.Chart})
	default:
		return nil, fmt.Errorf("%w: unknown kind %d", errMalformedRecord, r.Kind)
	}
}

func (r *Record) UnmarshalJSON(data []byte) error {
	rec, err := decodeRecord(data)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// decodeRecord dispatches on the hash field and validates the variant.
func decodeRecord(data []byte) (Record, error) {
	var head struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Record{}, fmt.Errorf("%w: %v", errMalformedRecord, err)
	}

	switch head.Hash {
	case "":
		return Record{}, fmt.Errorf("%w: missing hash", errMalformedRecord)
	case OverallHash:
		var o overallRecord
		if err := json.Unmarshal(data, &o); err != nil {
			return Record{}, fmt.Errorf("%w: %v", errMalformedRecord, err)
		}
		return Record{Kind: KindOverall, Overall: &o.OverallSummary}, nil
	case ChartHash:
		var c chartRecord
		if err := json.Unmarshal(data, &c); err != nil {
			return Record{}, fmt.Errorf("%w: %v", errMalformedRecord, err)
		}
		return Record{Kind: KindChart, Chart: &c.ChartSnapshot}, nil
	default:
		var c Commit
		if err := json.Unmarshal(data, &c); err != nil {
			return Record{}, fmt.Errorf("%w: %v", errMalformedRecord, err)
		}
		return Record{Kind: KindCommit, Commit: &c}, nil
	}
}

// IsReservedHash reports whether hash names a singleton record.
func IsReservedHash(hash string) bool {
	return hash == OverallHash || hash == ChartHash
}
