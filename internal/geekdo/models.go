// Copyright 2025 The geekdo-sync Authors
// SPDX-License-Identifier: Apache-2.0

package geekdo

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"time"
)

// PlayID is a GeekDo play identifier. Distinct type to keep it from
// being confused with destination row ids.
type PlayID int64

// ItemID is a GeekDo item (game) identifier.
type ItemID int64

// UserID is a GeekDo user identifier.
type UserID int64

// Item is the game (or expansion, family, ...) a play was logged against.
type Item struct {
	ID      ItemID
	Name    string
	Subtype string // first entry of the subtypes list, "" when none
	Type    string // objecttype, e.g. "thing"
}

// Player is one participant entry on a play. Name is the only field
// guaranteed to be present; everything else is frequently blank in the
// upstream data.
type Player struct {
	Name          string
	Username      *string
	UserID        *UserID
	StartPosition *string
	Color         *string
	Score         *int
	Rating        *int
	New           *bool
	Win           *bool
}

// Play is a single logged play, converted from the wire format into
// clean domain values. Immutable once constructed.
type Play struct {
	ID         PlayID
	Date       time.Time
	Quantity   int
	Length     *int // minutes
	Incomplete bool
	NoWinStats bool
	Location   *string
	Comments   *string
	Item       Item
	Players    []Player
}

// PlaysPage is one page of the plays feed. The API serves at most
// PageSize plays per page.
type PlaysPage struct {
	Username string
	UserID   UserID
	Total    int
	Page     int
	Plays    []Play
}

// PageSize is fixed server-side by the GeekDo API.
const PageSize = 100

// DateLayout is the date format used by the plays feed.
const DateLayout = "2006-01-02"

// Wire models. The GeekDo XML API encodes "absent" as empty-string
// attributes (and userid="0"), so everything optional is parsed as a
// string first and normalized in the conversion step.

type xmlPlays struct {
	XMLName  xml.Name  `xml:"plays"`
	Username string    `xml:"username,attr"`
	UserID   string    `xml:"userid,attr"`
	Total    int       `xml:"total,attr"`
	Page     int       `xml:"page,attr"`
	Plays    []xmlPlay `xml:"play"`
}

type xmlPlay struct {
	ID         int64       `xml:"id,attr"`
	Date       string      `xml:"date,attr"`
	Quantity   string      `xml:"quantity,attr"`
	Length     string      `xml:"length,attr"`
	Incomplete string      `xml:"incomplete,attr"`
	NowInStats string      `xml:"nowinstats,attr"`
	Location   string      `xml:"location,attr"`
	Item       xmlItem     `xml:"item"`
	Comments   string      `xml:"comments"`
	Players    []xmlPlayer `xml:"players>player"`
}

type xmlItem struct {
	Name       string       `xml:"name,attr"`
	ObjectType string       `xml:"objecttype,attr"`
	ObjectID   int64        `xml:"objectid,attr"`
	Subtypes   []xmlSubtype `xml:"subtypes>subtype"`
}

type xmlSubtype struct {
	Value string `xml:"value,attr"`
}

type xmlPlayer struct {
	Username      string `xml:"username,attr"`
	UserID        string `xml:"userid,attr"`
	Name          string `xml:"name,attr"`
	StartPosition string `xml:"startposition,attr"`
	Color         string `xml:"color,attr"`
	Score         string `xml:"score,attr"`
	New           string `xml:"new,attr"`
	Rating        string `xml:"rating,attr"`
	Win           string `xml:"win,attr"`
}

// ParsePlaysPage decodes one page of the plays feed.
func ParsePlaysPage(data []byte) (*PlaysPage, error) {
	var raw xmlPlays
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode plays XML: %w", err)
	}

	userID, err := parseUserID(raw.UserID)
	if err != nil {
		return nil, fmt.Errorf("plays userid: %w", err)
	}

	page := &PlaysPage{
		Username: raw.Username,
		UserID:   userID,
		Total:    raw.Total,
		Page:     raw.Page,
		Plays:    make([]Play, 0, len(raw.Plays)),
	}
	for _, rp := range raw.Plays {
		play, err := rp.toPlay()
		if err != nil {
			return nil, fmt.Errorf("play %d: %w", rp.ID, err)
		}
		page.Plays = append(page.Plays, play)
	}
	return page, nil
}

func (x xmlPlay) toPlay() (Play, error) {
	if x.ID <= 0 {
		return Play{}, fmt.Errorf("missing or zero play id")
	}
	date, err := time.Parse(DateLayout, x.Date)
	if err != nil {
		return Play{}, fmt.Errorf("parse date %q: %w", x.Date, err)
	}

	quantity := 1
	if x.Quantity != "" {
		quantity, err = strconv.Atoi(x.Quantity)
		if err != nil {
			return Play{}, fmt.Errorf("parse quantity %q: %w", x.Quantity, err)
		}
	}

	length, err := optInt(x.Length)
	if err != nil {
		return Play{}, fmt.Errorf("parse length %q: %w", x.Length, err)
	}

	item, err := x.Item.toItem()
	if err != nil {
		return Play{}, err
	}

	play := Play{
		ID:         PlayID(x.ID),
		Date:       date,
		Quantity:   quantity,
		Length:     length,
		Incomplete: x.Incomplete == "1",
		NoWinStats: x.NowInStats == "1",
		Location:   optStr(x.Location),
		Comments:   optStr(x.Comments),
		Item:       item,
	}

	for _, rp := range x.Players {
		player, err := rp.toPlayer()
		if err != nil {
			return Play{}, fmt.Errorf("player %q: %w", rp.Name, err)
		}
		play.Players = append(play.Players, player)
	}
	return play, nil
}

func (x xmlItem) toItem() (Item, error) {
	if x.ObjectID <= 0 {
		return Item{}, fmt.Errorf("missing or zero item objectid")
	}
	subtype := ""
	if len(x.Subtypes) > 0 {
		subtype = x.Subtypes[0].Value
	}
	return Item{
		ID:      ItemID(x.ObjectID),
		Name:    x.Name,
		Subtype: subtype,
		Type:    x.ObjectType,
	}, nil
}

func (x xmlPlayer) toPlayer() (Player, error) {
	score, err := optInt(x.Score)
	if err != nil {
		return Player{}, fmt.Errorf("parse score %q: %w", x.Score, err)
	}
	rating, err := optInt(x.Rating)
	if err != nil {
		return Player{}, fmt.Errorf("parse rating %q: %w", x.Rating, err)
	}
	userID, err := optUserID(x.UserID)
	if err != nil {
		return Player{}, fmt.Errorf("parse userid %q: %w", x.UserID, err)
	}
	return Player{
		Name:          x.Name,
		Username:      optStr(x.Username),
		UserID:        userID,
		StartPosition: optStr(x.StartPosition),
		Color:         optStr(x.Color),
		Score:         score,
		Rating:        rating,
		New:           optBool(x.New),
		Win:           optBool(x.Win),
	}, nil
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// optInt treats "" as absent; anything else must be an integer.
func optInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// optBool treats "" as absent; the feed encodes flags as "0"/"1".
func optBool(s string) *bool {
	if s == "" {
		return nil
	}
	b := s == "1"
	return &b
}

// optUserID treats "" and "0" as absent; the feed uses zero for
// players without an account.
func optUserID(s string) (*UserID, error) {
	if s == "" || s == "0" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	id := UserID(n)
	return &id, nil
}

func parseUserID(s string) (UserID, error) {
	id, err := optUserID(s)
	if err != nil {
		return 0, err
	}
	if id == nil {
		return 0, fmt.Errorf("userid cannot be empty or zero")
	}
	return *id, nil
}
