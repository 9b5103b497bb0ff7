package sqlcgen

import "time"

type User struct {
	DiscordID int64
	Username  string
	Email     *string
}

type Machine struct {
	ID          int32
	Hostname    string
	Description string
}

type MachineDisplay struct {
	DiscordMessageID int64
	MachineHostname  string
}

type Todo struct {
	ID        int32
	Content   string
	Assigned  *int64
	Started   time.Time
	Deadline  *time.Time
	Completed *time.Time
	Cancelled bool
}

type Writeup struct {
	ID           int32
	AuthorID     int64
	Title        string
	Slug         string
	Tags         []string
	Content      string
	Private      bool
	CreationDate time.Time
	EditDate     time.Time
}

// WriteupWithAuthor is the row shape for writeup queries joined on users.
type WriteupWithAuthor struct {
	Writeup
	AuthorUsername string
}

// SearchWriteupsRow carries the headline fragment produced by ts_headline.
type SearchWriteupsRow struct {
	WriteupWithAuthor
	Headline string
}

type WriteupTagCount struct {
	Tag   string
	Count int64
}
