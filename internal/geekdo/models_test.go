// Copyright 2025 The geekdo-sync Authors
// SPDX-License-Identifier: Apache-2.0

package geekdo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const samplePage = `<?xml version="1.0" encoding="utf-8"?>
<plays username="alice" userid="12345" total="247" page="1" termsofuse="https://boardgamegeek.com/xmlapi/termsofuse">
	<play id="9001" date="2025-08-14" quantity="2" length="95" incomplete="0" nowinstats="0" location="Kitchen table">
		<item name="Brass: Birmingham" objecttype="thing" objectid="224517">
			<subtypes>
				<subtype value="boardgame"/>
			</subtypes>
		</item>
		<comments>Tight endgame.</comments>
		<players>
			<player username="alice" userid="12345" name="Alice" startposition="1" color="Red" score="142" new="0" rating="9" win="1"/>
			<player username="" userid="0" name="Grandpa" startposition="" color="" score="" new="1" rating="0" win="0"/>
		</players>
	</play>
	<play id="9002" date="2025-08-15" quantity="" length="" incomplete="1" nowinstats="1" location="">
		<item name="Dominion" objecttype="thing" objectid="36218">
			<subtypes/>
		</item>
	</play>
</plays>`

func TestParsePlaysPage(t *testing.T) {
	page, err := ParsePlaysPage([]byte(samplePage))
	require.NoError(t, err)

	require.Equal(t, "alice", page.Username)
	require.Equal(t, UserID(12345), page.UserID)
	require.Equal(t, 247, page.Total)
	require.Equal(t, 1, page.Page)
	require.Len(t, page.Plays, 2)

	full := page.Plays[0]
	require.Equal(t, PlayID(9001), full.ID)
	require.Equal(t, time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC), full.Date)
	require.Equal(t, 2, full.Quantity)
	require.NotNil(t, full.Length)
	require.Equal(t, 95, *full.Length)
	require.False(t, full.Incomplete)
	require.False(t, full.NoWinStats)
	require.NotNil(t, full.Location)
	require.Equal(t, "Kitchen table", *full.Location)
	require.NotNil(t, full.Comments)
	require.Equal(t, "Tight endgame.", *full.Comments)

	require.Equal(t, ItemID(224517), full.Item.ID)
	require.Equal(t, "Brass: Birmingham", full.Item.Name)
	require.Equal(t, "boardgame", full.Item.Subtype)
	require.Equal(t, "thing", full.Item.Type)

	require.Len(t, full.Players, 2)

	alice := full.Players[0]
	require.Equal(t, "Alice", alice.Name)
	require.NotNil(t, alice.Username)
	require.Equal(t, "alice", *alice.Username)
	require.NotNil(t, alice.UserID)
	require.Equal(t, UserID(12345), *alice.UserID)
	require.NotNil(t, alice.Score)
	require.Equal(t, 142, *alice.Score)
	require.NotNil(t, alice.Win)
	require.True(t, *alice.Win)
	require.NotNil(t, alice.New)
	require.False(t, *alice.New)

	// Guest players have no account: empty username and userid="0"
	// both mean absent.
	guest := full.Players[1]
	require.Equal(t, "Grandpa", guest.Name)
	require.Nil(t, guest.Username)
	require.Nil(t, guest.UserID)
	require.Nil(t, guest.StartPosition)
	require.Nil(t, guest.Color)
	require.Nil(t, guest.Score)
	require.NotNil(t, guest.Rating)
	require.Equal(t, 0, *guest.Rating)
	require.NotNil(t, guest.New)
	require.True(t, *guest.New)
	require.NotNil(t, guest.Win)
	require.False(t, *guest.Win)

	// Minimal play: quantity defaults to 1, empty attributes are absent.
	sparse := page.Plays[1]
	require.Equal(t, PlayID(9002), sparse.ID)
	require.Equal(t, 1, sparse.Quantity)
	require.Nil(t, sparse.Length)
	require.True(t, sparse.Incomplete)
	require.True(t, sparse.NoWinStats)
	require.Nil(t, sparse.Location)
	require.Nil(t, sparse.Comments)
	require.Equal(t, "", sparse.Item.Subtype)
	require.Empty(t, sparse.Players)
}

func TestParsePlaysPageEmpty(t *testing.T) {
	const empty = `<plays username="alice" userid="12345" total="0" page="4"></plays>`
	page, err := ParsePlaysPage([]byte(empty))
	require.NoError(t, err)
	require.Equal(t, 4, page.Page)
	require.Empty(t, page.Plays)
}

func TestParsePlaysPageBadDate(t *testing.T) {
	const bad = `<plays username="alice" userid="12345" total="1" page="1">
		<play id="1" date="not-a-date" quantity="1">
			<item name="X" objecttype="thing" objectid="7"/>
		</play>
	</plays>`
	_, err := ParsePlaysPage([]byte(bad))
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse date")
}

func TestParsePlaysPageMissingPlayID(t *testing.T) {
	const bad = `<plays username="alice" userid="12345" total="1" page="1">
		<play date="2025-08-14" quantity="1">
			<item name="X" objecttype="thing" objectid="7"/>
		</play>
	</plays>`
	_, err := ParsePlaysPage([]byte(bad))
	require.Error(t, err)
}

func TestParsePlaysPageNotXML(t *testing.T) {
	_, err := ParsePlaysPage([]byte(`{"definitely": "json"}`))
	require.Error(t, err)
}
