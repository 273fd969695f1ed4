package keywords

import (
	"fmt"
	"sort"
	"strings"
)

// Category is a named keyword group. The same group drives both the search
// query sent to the API and the tags attached to matched posts.
type Category struct {
	Name     string
	Priority int // higher = searched first
	Phrases  []string
}

// CategoryQuery is a ready-to-send search query derived from one category.
type CategoryQuery struct {
	Category string
	Query    string
}

// noiseFilter trims obvious spam from search results. Operators follow the
// X API v2 query grammar.
const noiseFilter = "-job -hiring -airdrop -giveaway -is:retweet"

// Registry holds an ordered set of categories.
//
// Order matters: Categorize() returns matches in registry order, and ties in
// Queries() are broken by it.
type Registry struct {
	cats []Category

	// lowered phrase index per category, built once
	lowered [][]string
}

// New validates and indexes the given categories.
func New(cats []Category) (*Registry, error) {
	if len(cats) == 0 {
		return nil, fmt.Errorf("keywords: at least one category is required")
	}
	seen := map[string]bool{}
	lowered := make([][]string, 0, len(cats))
	for i, c := range cats {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("keywords: category %d has an empty name", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("keywords: duplicate category %q", name)
		}
		seen[name] = true
		if len(c.Phrases) == 0 {
			return nil, fmt.Errorf("keywords: category %q has no phrases", name)
		}
		low := make([]string, 0, len(c.Phrases))
		for _, p := range c.Phrases {
			p = strings.TrimSpace(p)
			if p == "" {
				return nil, fmt.Errorf("keywords: category %q has an empty phrase", name)
			}
			low = append(low, strings.ToLower(p))
		}
		lowered = append(lowered, low)
	}
	cp := append([]Category(nil), cats...)
	return &Registry{cats: cp, lowered: lowered}, nil
}

// Default returns the built-in hackathon/funding monitoring registry.
func Default() *Registry {
	r, err := New(defaultCategories())
	if err != nil {
		// defaultCategories is static; a failure here is a programming error.
		panic(err)
	}
	return r
}

// Categories returns the registry contents in insertion order.
func (r *Registry) Categories() []Category {
	return append([]Category(nil), r.cats...)
}

// Names returns category names in insertion order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.cats))
	for _, c := range r.cats {
		out = append(out, c.Name)
	}
	return out
}

// Queries derives one search query per category: multi-word phrases are
// quoted, phrases are OR-joined, and the noise filter is appended.
// Higher-priority categories come first so they get searched before any
// quota runs out mid-cycle.
func (r *Registry) Queries() []CategoryQuery {
	out := make([]CategoryQuery, 0, len(r.cats))
	for _, c := range r.cats {
		out = append(out, CategoryQuery{Category: c.Name, Query: buildQuery(c.Phrases)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return priorityOf(r.cats, out[i].Category) > priorityOf(r.cats, out[j].Category)
	})
	return out
}

func priorityOf(cats []Category, name string) int {
	for _, c := range cats {
		if c.Name == name {
			return c.Priority
		}
	}
	return 0
}

func buildQuery(phrases []string) string {
	parts := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.ContainsRune(p, ' ') {
			parts = append(parts, `"`+p+`"`)
		} else {
			parts = append(parts, p)
		}
	}
	return "(" + strings.Join(parts, " OR ") + ") " + noiseFilter
}

// Categorize returns the names of all categories whose phrases appear in
// text (case-insensitive substring match), in registry order. A text that
// matches nothing returns an empty slice; callers deliver those anyway since
// the search query already filtered by keyword.
func (r *Registry) Categorize(text string) []string {
	low := strings.ToLower(text)
	var out []string
	for i, c := range r.cats {
		for _, p := range r.lowered[i] {
			if strings.Contains(low, p) {
				out = append(out, c.Name)
				break
			}
		}
	}
	return out
}

func defaultCategories() []Category {
	return []Category{
		{
			Name:     "hackathons",
			Priority: 10,
			Phrases: []string{
				"hackathon",
				"buildathon",
				"build-a-thon",
				"hack-a-thon",
				"codefest",
				"coding competition",
				"developer challenge",
				"programming contest",
				"hackathon announcement",
				"hackathon registration open",
				"new hackathon",
				"upcoming hackathon",
				"global hackathon",
				"virtual hackathon",
				"online hackathon",
				"student hackathon",
				"hackathon kickoff",
				"hackathon prize pool",
				"hackathon winners",
				"hackathon submission",
				"hackathon demo day",
				"join the hackathon",
				"web3 hackathon",
				"ai hackathon",
			},
		},
		{
			Name:     "funding",
			Priority: 8,
			Phrases: []string{
				"series a",
				"series b",
				"seed round",
				"pre-seed",
				"funding round",
				"raised funding",
				"just raised",
				"venture capital",
				"startup funding",
			},
		},
		{
			Name:     "grants",
			Priority: 6,
			Phrases: []string{
				"grant program",
				"developer grant",
				"ecosystem grant",
				"research grant",
				"grants open",
				"apply for grant",
				"bounty program",
				"bug bounty",
				"developer bounty",
			},
		},
		{
			Name:     "blockchain",
			Priority: 4,
			Phrases: []string{
				"new blockchain",
				"blockchain launch",
				"mainnet launch",
				"testnet live",
				"protocol launch",
				"defi protocol",
				"smart contract audit",
			},
		},
	}
}
