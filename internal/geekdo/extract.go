// Copyright 2025 The geekdo-sync Authors
// SPDX-License-Identifier: Apache-2.0

package geekdo

// UniqueItems collects the distinct items referenced by a batch of
// plays, keyed by item id. First occurrence wins; later occurrences of
// the same id are assumed identical.
func UniqueItems(plays []Play) map[ItemID]Item {
	items := make(map[ItemID]Item)
	for _, play := range plays {
		if _, ok := items[play.Item.ID]; !ok {
			items[play.Item.ID] = play.Item
		}
	}
	return items
}

// UniquePlayers collects the distinct players referenced by a batch of
// plays, keyed by display name. The display name is the natural key:
// the external user id is frequently absent for guest players. First
// occurrence wins. Plays without players contribute nothing.
func UniquePlayers(plays []Play) map[string]Player {
	players := make(map[string]Player)
	for _, play := range plays {
		for _, player := range play.Players {
			if _, ok := players[player.Name]; !ok {
				players[player.Name] = player
			}
		}
	}
	return players
}
