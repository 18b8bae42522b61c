package biz

import (
	"context"
	"regexp"
	"strings"
)

// Partition identifies one of the independently provisioned storage
// backends.
type Partition string

const (
	PartitionPrimary Partition = "primary"
	PartitionCloud   Partition = "cloud"
	PartitionArchive Partition = "archive"
)

// PartitionOrder is the fixed fan-out order for federated queries.
var PartitionOrder = []Partition{PartitionPrimary, PartitionCloud, PartitionArchive}

// ParsePartition validates a partition name. The empty string is not a
// partition; callers use it to mean "all".
func ParsePartition(name string) (Partition, bool) {
	switch Partition(name) {
	case PartitionPrimary, PartitionCloud, PartitionArchive:
		return Partition(name), true
	}
	return "", false
}

// MediaRecord is one indexed file. ID is the canonical identity key and is
// immutable after creation; records are never updated in place.
type MediaRecord struct {
	ID        string
	FileName  string
	FileSize  int64
	Caption   string
	Partition Partition
}

// Media is the descriptor of a candidate file as delivered by the message
// stream, before identity derivation and normalization.
type Media struct {
	FileRef  string
	FileName string
	FileSize int64
	Caption  string
}

// PutResult classifies the outcome of an insert attempt.
type PutResult int

const (
	PutCreated PutResult = iota
	PutDuplicate
	PutFailed
)

func (r PutResult) String() string {
	switch r {
	case PutCreated:
		return "created"
	case PutDuplicate:
		return "duplicate"
	default:
		return "failed"
	}
}

// Store is one partition's persistence backend. Implementations log their
// own failures; Put never panics and never surfaces an error to callers.
type Store interface {
	// Put inserts the record. An existing id yields PutDuplicate without
	// overwriting; any other failure yields PutFailed.
	Put(ctx context.Context, rec *MediaRecord) PutResult

	// Get returns the record or (nil, nil) when absent.
	Get(ctx context.Context, id string) (*MediaRecord, error)

	// Search returns records whose file name (and optionally caption)
	// matches the SQL LIKE pattern, case-insensitively.
	Search(ctx context.Context, pattern string, includeCaption bool) ([]*MediaRecord, error)

	// Count returns the total number of records.
	Count(ctx context.Context) (int64, error)

	// SizeBytes returns the storage footprint of the partition.
	SizeBytes(ctx context.Context) (int64, error)

	// Enabled reports whether the partition accepts reads and writes.
	Enabled() bool
}

// special characters providers embed in file names that break keyword
// matching: @mentions, underscores, dashes, dots and pluses
var normalizePattern = regexp.MustCompile(`@\w+|[_\-.+]`)

// NormalizeText rewrites provider special characters to spaces so stored
// names and captions match space-separated keywords.
func NormalizeText(s string) string {
	return normalizePattern.ReplaceAllString(s, " ")
}

// BuildPattern turns a search keyword into a case-insensitive SQL LIKE
// pattern. Internal whitespace becomes a wildcard gap so multi-word
// keywords match with anything in between; an empty keyword matches every
// record.
func BuildPattern(keyword string) string {
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(keyword)))
	if len(tokens) == 0 {
		return "%"
	}
	escaped := make([]string, len(tokens))
	for i, tok := range tokens {
		escaped[i] = escapeLike(tok)
	}
	return "%" + strings.Join(escaped, "%") + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
