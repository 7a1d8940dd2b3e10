package catalog

import "sort"

// GroupCarts groups entries by user. Users are ordered by id and each
// user's entries by the time they were added.
func GroupCarts(entries []CartEntry) []Cart {
	byUser := make(map[string][]CartEntry)
	for _, e := range entries {
		byUser[e.UserID] = append(byUser[e.UserID], e)
	}

	carts := make([]Cart, 0, len(byUser))
	for userID, list := range byUser {
		sort.SliceStable(list, func(i, j int) bool {
			if !list[i].AddedAt.Equal(list[j].AddedAt) {
				return list[i].AddedAt.Before(list[j].AddedAt)
			}
			return list[i].ProductID < list[j].ProductID
		})
		carts = append(carts, Cart{UserID: userID, Entries: list})
	}

	sort.Slice(carts, func(i, j int) bool {
		return carts[i].UserID < carts[j].UserID
	})
	return carts
}
