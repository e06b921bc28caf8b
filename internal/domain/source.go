package domain

// Source identifies the provider a token record came from.
// The set is closed; Priority defines a fixed total order over it.
type Source string

const (
	SourceJupiter    Source = "jupiter"    // primary verified listings
	SourcePumpPortal Source = "pumpportal" // launch feed (pump.fun)
	SourceHelius     Source = "helius"     // enriched DAS metadata
	SourceSolanaRPC  Source = "solana-rpc" // chain fill-in
)

// AllSources lists every source in descending priority.
var AllSources = []Source{SourceJupiter, SourcePumpPortal, SourceHelius, SourceSolanaRPC}

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}

// IsValid checks if the source is a valid value.
func (s Source) IsValid() bool {
	return s.Priority() > 0
}

// Priority returns the merge rank of the source. Higher wins.
// Unknown sources rank 0.
func (s Source) Priority() int {
	switch s {
	case SourceJupiter:
		return 4
	case SourcePumpPortal:
		return 3
	case SourceHelius:
		return 2
	case SourceSolanaRPC:
		return 1
	default:
		return 0
	}
}

// ParseSource converts a string into a Source.
// Returns false if the value is not one of the known sources.
func ParseSource(v string) (Source, bool) {
	s := Source(v)
	return s, s.IsValid()
}
