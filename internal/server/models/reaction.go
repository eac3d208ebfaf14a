package models

// ReactionMap maps an emoji to the ordered list of user ids that reacted
// with it. No emoji key ever holds an empty list.
type ReactionMap map[string][]int64

// Toggle flips userID's reaction for emoji: a user not in the member list is
// appended, a user already present is removed. A key whose list drains is
// deleted entirely. Applying the same toggle twice restores the prior state.
func (m ReactionMap) Toggle(userID int64, emoji string) {
	members := m[emoji]
	for i, id := range members {
		if id == userID {
			members = append(members[:i], members[i+1:]...)
			if len(members) == 0 {
				delete(m, emoji)
			} else {
				m[emoji] = members
			}
			return
		}
	}
	m[emoji] = append(members, userID)
}

// Has reports whether userID is a member of emoji's reaction list.
func (m ReactionMap) Has(userID int64, emoji string) bool {
	for _, id := range m[emoji] {
		if id == userID {
			return true
		}
	}
	return false
}
