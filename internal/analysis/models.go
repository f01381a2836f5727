package analysis

import "github.com/efebarandurmaz/socialgraph/internal/social"

// GraphReader is the read-only view of the network the analyzer needs.
// *social.Store implements it.
type GraphReader interface {
	IDs() []int
	Neighbors(id int) []int
	Person(id int) (social.Person, bool)
	Len() int
	EdgeCount() int
}

// Stats holds whole-network metrics.
type Stats struct {
	Persons       int     `json:"persons"`
	Connections   int     `json:"connections"`
	Density       float64 `json:"density"`
	AverageDegree float64 `json:"average_degree"`
	Components    int     `json:"components"`
	Connected     bool    `json:"connected"`
}

// Ranking is one entry of a centrality top list.
type Ranking struct {
	PersonID   int     `json:"id"`
	Name       string  `json:"name"`
	Centrality float64 `json:"centrality"`
}

// CentralityReport groups both centrality rankings. Closeness is empty when
// the network is not a single component.
type CentralityReport struct {
	Degree    []Ranking `json:"degree"`
	Closeness []Ranking `json:"closeness"`
}

// PersonAnalysis describes one person's position in the network.
type PersonAnalysis struct {
	Person              social.Person  `json:"person"`
	Degree              int            `json:"degree"`
	NeighborCount       int            `json:"neighbor_count"`
	InterestConnections map[string]int `json:"interest_connections"`
	LocalCentrality     float64        `json:"local_centrality"`
}
