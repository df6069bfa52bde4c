// Copyright 2025 The geekdo-sync Authors
// SPDX-License-Identifier: Apache-2.0

package sync

// Destination table names.
const (
	TableItems       = "Items"
	TablePlayers     = "Players"
	TablePlays       = "Plays"
	TablePlayerPlays = "PlayerPlays"
)

// Items columns. ItemID is the natural key.
const (
	ColItemID  = "ItemID"
	ColName    = "Name"
	ColSubtype = "Subtype"
	ColType    = "Type"
)

// Players columns. Name (shared with Items above) is the natural key.
const (
	ColUsername = "Username"
	ColUserID   = "UserID"
)

// Plays columns. PlayID is the natural key; Item references an Items row.
const (
	ColPlayID   = "PlayID"
	ColDate     = "Date"
	ColItem     = "Item"
	ColQuantity = "Quantity"
	ColLength   = "Length_Minutes"
	ColComment  = "Comment"
	ColLocation = "Location"
)

// PlayerPlays columns. (Play, Player) is the natural key; both are row
// references.
const (
	ColPlay          = "Play"
	ColPlayer        = "Player"
	ColStartPosition = "StartPosition"
	ColColor         = "Color"
	ColScore         = "Score"
	ColRating        = "Rating"
	ColNew           = "New"
	ColWin           = "Win"
)
