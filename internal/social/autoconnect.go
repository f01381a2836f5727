package social

// AutoConnect links the person id to every other person sharing at least one
// interest, scanning in ascending id order. It returns the number of edges
// created. Persons without interests never connect.
func AutoConnect(s *Store, id int) int {
	p, ok := s.persons[id]
	if !ok || len(p.Interests) == 0 {
		return 0
	}

	created := 0
	for _, otherID := range s.ids() {
		if otherID == id {
			continue
		}
		other := s.persons[otherID]
		if p.HasFriend(otherID) || !p.SharesInterest(*other) {
			continue
		}
		if s.Connect(id, otherID) {
			created++
		}
	}
	return created
}
