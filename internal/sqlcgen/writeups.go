package sqlcgen

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const writeupColumns = `w.id, w.author_id, w.title, w.slug, w.tags, w.content, w.private, w.creation_date, w.edit_date, u.username`

const createWriteup = `-- name: CreateWriteup :one
INSERT INTO writeups (author_id, title, slug, tags, content, private)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, author_id, title, slug, tags, content, private, creation_date, edit_date
`

type CreateWriteupParams struct {
	AuthorID int64
	Title    string
	Slug     string
	Tags     []string
	Content  string
	Private  bool
}

func (q *Queries) CreateWriteup(ctx context.Context, arg CreateWriteupParams) (Writeup, error) {
	row := q.db.QueryRow(ctx, createWriteup, arg.AuthorID, arg.Title, arg.Slug, arg.Tags, arg.Content, arg.Private)
	var i Writeup
	err := row.Scan(&i.ID, &i.AuthorID, &i.Title, &i.Slug, &i.Tags, &i.Content, &i.Private, &i.CreationDate, &i.EditDate)
	return i, err
}

const updateWriteup = `-- name: UpdateWriteup :one
UPDATE writeups
SET title = $2,
    slug = $3,
    tags = $4,
    content = $5,
    private = $6,
    edit_date = now()
WHERE id = $1
RETURNING id, author_id, title, slug, tags, content, private, creation_date, edit_date
`

type UpdateWriteupParams struct {
	ID      int32
	Title   string
	Slug    string
	Tags    []string
	Content string
	Private bool
}

func (q *Queries) UpdateWriteup(ctx context.Context, arg UpdateWriteupParams) (Writeup, error) {
	row := q.db.QueryRow(ctx, updateWriteup, arg.ID, arg.Title, arg.Slug, arg.Tags, arg.Content, arg.Private)
	var i Writeup
	err := row.Scan(&i.ID, &i.AuthorID, &i.Title, &i.Slug, &i.Tags, &i.Content, &i.Private, &i.CreationDate, &i.EditDate)
	return i, err
}

const deleteWriteup = `-- name: DeleteWriteup :execrows
DELETE FROM writeups
WHERE id = $1
`

func (q *Queries) DeleteWriteup(ctx context.Context, id int32) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteWriteup, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const getWriteup = `-- name: GetWriteup :one
SELECT ` + writeupColumns + `
FROM writeups w
JOIN users u ON u.discord_id = w.author_id
WHERE w.id = $1
`

func (q *Queries) GetWriteup(ctx context.Context, id int32) (WriteupWithAuthor, error) {
	row := q.db.QueryRow(ctx, getWriteup, id)
	return scanWriteupWithAuthor(row)
}

const getWriteupBySlug = `-- name: GetWriteupBySlug :one
SELECT ` + writeupColumns + `
FROM writeups w
JOIN users u ON u.discord_id = w.author_id
WHERE w.slug = $1
`

func (q *Queries) GetWriteupBySlug(ctx context.Context, slug string) (WriteupWithAuthor, error) {
	row := q.db.QueryRow(ctx, getWriteupBySlug, slug)
	return scanWriteupWithAuthor(row)
}

const getWriteupByTitle = `-- name: GetWriteupByTitle :one
SELECT ` + writeupColumns + `
FROM writeups w
JOIN users u ON u.discord_id = w.author_id
WHERE w.title = $1
`

func (q *Queries) GetWriteupByTitle(ctx context.Context, title string) (WriteupWithAuthor, error) {
	row := q.db.QueryRow(ctx, getWriteupByTitle, title)
	return scanWriteupWithAuthor(row)
}

const listWriteups = `-- name: ListWriteups :many
SELECT ` + writeupColumns + `
FROM writeups w
JOIN users u ON u.discord_id = w.author_id
ORDER BY w.creation_date DESC
`

func (q *Queries) ListWriteups(ctx context.Context) ([]WriteupWithAuthor, error) {
	rows, err := q.db.Query(ctx, listWriteups)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWriteups(rows)
}

const listWriteupsByTag = `-- name: ListWriteupsByTag :many
SELECT ` + writeupColumns + `
FROM writeups w
JOIN users u ON u.discord_id = w.author_id
WHERE w.tags @> ARRAY[$1]::text[]
ORDER BY w.creation_date DESC
`

func (q *Queries) ListWriteupsByTag(ctx context.Context, tag string) ([]WriteupWithAuthor, error) {
	rows, err := q.db.Query(ctx, listWriteupsByTag, tag)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWriteups(rows)
}

const listWriteupsByAuthorUsername = `-- name: ListWriteupsByAuthorUsername :many
SELECT ` + writeupColumns + `
FROM writeups w
JOIN users u ON u.discord_id = w.author_id
WHERE u.username = $1
ORDER BY w.creation_date DESC
`

func (q *Queries) ListWriteupsByAuthorUsername(ctx context.Context, username string) ([]WriteupWithAuthor, error) {
	rows, err := q.db.Query(ctx, listWriteupsByAuthorUsername, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWriteups(rows)
}

const searchWriteups = `-- name: SearchWriteups :many
SELECT ` + writeupColumns + `,
       ts_headline(
         'english',
         w.content,
         websearch_to_tsquery('english', $1),
         'StartSel=**,StopSel=**,MaxWords=70,MinWords=30,MaxFragments=3'
       ) AS headline
FROM writeups w
JOIN users u ON u.discord_id = w.author_id
WHERE to_tsvector('english', w.title || ' ' || w.content) @@ websearch_to_tsquery('english', $1)
ORDER BY ts_rank(
  to_tsvector('english', w.title || ' ' || w.content),
  websearch_to_tsquery('english', $1)
) DESC
LIMIT $2
`

type SearchWriteupsParams struct {
	Query string
	Limit int32
}

func (q *Queries) SearchWriteups(ctx context.Context, arg SearchWriteupsParams) ([]SearchWriteupsRow, error) {
	rows, err := q.db.Query(ctx, searchWriteups, arg.Query, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SearchWriteupsRow
	for rows.Next() {
		var i SearchWriteupsRow
		if err := rows.Scan(&i.ID, &i.AuthorID, &i.Title, &i.Slug, &i.Tags, &i.Content, &i.Private, &i.CreationDate, &i.EditDate, &i.AuthorUsername, &i.Headline); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listWriteupTags = `-- name: ListWriteupTags :many
SELECT tag, COUNT(*) AS count
FROM writeups, unnest(tags) AS tag
WHERE NOT private
GROUP BY tag
ORDER BY COUNT(*) DESC, tag
`

func (q *Queries) ListWriteupTags(ctx context.Context) ([]WriteupTagCount, error) {
	rows, err := q.db.Query(ctx, listWriteupTags)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WriteupTagCount
	for rows.Next() {
		var i WriteupTagCount
		if err := rows.Scan(&i.Tag, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanWriteupWithAuthor(row pgx.Row) (WriteupWithAuthor, error) {
	var i WriteupWithAuthor
	err := row.Scan(&i.ID, &i.AuthorID, &i.Title, &i.Slug, &i.Tags, &i.Content, &i.Private, &i.CreationDate, &i.EditDate, &i.AuthorUsername)
	return i, err
}

func collectWriteups(rows pgx.Rows) ([]WriteupWithAuthor, error) {
	var items []WriteupWithAuthor
	for rows.Next() {
		var i WriteupWithAuthor
		if err := rows.Scan(&i.ID, &i.AuthorID, &i.Title, &i.Slug, &i.Tags, &i.Content, &i.Private, &i.CreationDate, &i.EditDate, &i.AuthorUsername); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
