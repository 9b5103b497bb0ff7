package sqlcgen

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX matches the minimal interface needed from pgxpool.Pool or pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const upsertUser = `-- name: UpsertUser :one
INSERT INTO users (discord_id, username, email)
VALUES ($1, $2, $3)
ON CONFLICT (discord_id)
DO UPDATE SET username = EXCLUDED.username,
              email = COALESCE(EXCLUDED.email, users.email)
RETURNING discord_id, username, email
`

type UpsertUserParams struct {
	DiscordID int64
	Username  string
	Email     *string
}

func (q *Queries) UpsertUser(ctx context.Context, arg UpsertUserParams) (User, error) {
	row := q.db.QueryRow(ctx, upsertUser, arg.DiscordID, arg.Username, arg.Email)
	var i User
	err := row.Scan(&i.DiscordID, &i.Username, &i.Email)
	return i, err
}

const getUser = `-- name: GetUser :one
SELECT discord_id, username, email
FROM users
WHERE discord_id = $1
`

func (q *Queries) GetUser(ctx context.Context, discordID int64) (User, error) {
	row := q.db.QueryRow(ctx, getUser, discordID)
	var i User
	err := row.Scan(&i.DiscordID, &i.Username, &i.Email)
	return i, err
}

const listMachines = `-- name: ListMachines :many
SELECT id, hostname, description
FROM machines
ORDER BY hostname
`

func (q *Queries) ListMachines(ctx context.Context) ([]Machine, error) {
	rows, err := q.db.Query(ctx, listMachines)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Machine
	for rows.Next() {
		var i Machine
		if err := rows.Scan(&i.ID, &i.Hostname, &i.Description); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getMachineByHostname = `-- name: GetMachineByHostname :one
SELECT id, hostname, description
FROM machines
WHERE hostname = $1
`

func (q *Queries) GetMachineByHostname(ctx context.Context, hostname string) (Machine, error) {
	row := q.db.QueryRow(ctx, getMachineByHostname, hostname)
	var i Machine
	err := row.Scan(&i.ID, &i.Hostname, &i.Description)
	return i, err
}

const upsertMachine = `-- name: UpsertMachine :one
INSERT INTO machines (hostname, description)
VALUES ($1, $2)
ON CONFLICT (hostname)
DO UPDATE SET description = EXCLUDED.description
RETURNING id, hostname, description
`

type UpsertMachineParams struct {
	Hostname    string
	Description string
}

func (q *Queries) UpsertMachine(ctx context.Context, arg UpsertMachineParams) (Machine, error) {
	row := q.db.QueryRow(ctx, upsertMachine, arg.Hostname, arg.Description)
	var i Machine
	err := row.Scan(&i.ID, &i.Hostname, &i.Description)
	return i, err
}

const deleteMachineByHostname = `-- name: DeleteMachineByHostname :execrows
DELETE FROM machines
WHERE hostname = $1
`

func (q *Queries) DeleteMachineByHostname(ctx context.Context, hostname string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteMachineByHostname, hostname)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const createMachineDisplay = `-- name: CreateMachineDisplay :exec
INSERT INTO machine_displays (discord_message_id, machine_hostname)
VALUES ($1, $2)
ON CONFLICT (discord_message_id)
DO UPDATE SET machine_hostname = EXCLUDED.machine_hostname
`

type CreateMachineDisplayParams struct {
	DiscordMessageID int64
	MachineHostname  string
}

func (q *Queries) CreateMachineDisplay(ctx context.Context, arg CreateMachineDisplayParams) error {
	_, err := q.db.Exec(ctx, createMachineDisplay, arg.DiscordMessageID, arg.MachineHostname)
	return err
}

const getMachineDisplay = `-- name: GetMachineDisplay :one
SELECT discord_message_id, machine_hostname
FROM machine_displays
WHERE discord_message_id = $1
`

func (q *Queries) GetMachineDisplay(ctx context.Context, discordMessageID int64) (MachineDisplay, error) {
	row := q.db.QueryRow(ctx, getMachineDisplay, discordMessageID)
	var i MachineDisplay
	err := row.Scan(&i.DiscordMessageID, &i.MachineHostname)
	return i, err
}

const createTodo = `-- name: CreateTodo :one
INSERT INTO todos (content, assigned, deadline)
VALUES ($1, $2, $3)
RETURNING id, content, assigned, started, deadline, completed, cancelled
`

type CreateTodoParams struct {
	Content  string
	Assigned *int64
	Deadline *time.Time
}

func (q *Queries) CreateTodo(ctx context.Context, arg CreateTodoParams) (Todo, error) {
	row := q.db.QueryRow(ctx, createTodo, arg.Content, arg.Assigned, arg.Deadline)
	var i Todo
	err := row.Scan(&i.ID, &i.Content, &i.Assigned, &i.Started, &i.Deadline, &i.Completed, &i.Cancelled)
	return i, err
}

const getTodo = `-- name: GetTodo :one
SELECT id, content, assigned, started, deadline, completed, cancelled
FROM todos
WHERE id = $1
`

func (q *Queries) GetTodo(ctx context.Context, id int32) (Todo, error) {
	row := q.db.QueryRow(ctx, getTodo, id)
	var i Todo
	err := row.Scan(&i.ID, &i.Content, &i.Assigned, &i.Started, &i.Deadline, &i.Completed, &i.Cancelled)
	return i, err
}

const listOpenTodos = `-- name: ListOpenTodos :many
SELECT id, content, assigned, started, deadline, completed, cancelled
FROM todos
WHERE completed IS NULL
ORDER BY started
`

func (q *Queries) ListOpenTodos(ctx context.Context) ([]Todo, error) {
	rows, err := q.db.Query(ctx, listOpenTodos)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTodos(rows)
}

const listOpenTodosByAssignee = `-- name: ListOpenTodosByAssignee :many
SELECT id, content, assigned, started, deadline, completed, cancelled
FROM todos
WHERE completed IS NULL AND assigned = $1
ORDER BY started
`

func (q *Queries) ListOpenTodosByAssignee(ctx context.Context, assigned int64) ([]Todo, error) {
	rows, err := q.db.Query(ctx, listOpenTodosByAssignee, assigned)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTodos(rows)
}

func collectTodos(rows pgx.Rows) ([]Todo, error) {
	var items []Todo
	for rows.Next() {
		var i Todo
		if err := rows.Scan(&i.ID, &i.Content, &i.Assigned, &i.Started, &i.Deadline, &i.Completed, &i.Cancelled); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const completeTodo = `-- name: CompleteTodo :one
UPDATE todos
SET completed = now(), cancelled = $2
WHERE id = $1
RETURNING id, content, assigned, started, deadline, completed, cancelled
`

type CompleteTodoParams struct {
	ID        int32
	Cancelled bool
}

func (q *Queries) CompleteTodo(ctx context.Context, arg CompleteTodoParams) (Todo, error) {
	row := q.db.QueryRow(ctx, completeTodo, arg.ID, arg.Cancelled)
	var i Todo
	err := row.Scan(&i.ID, &i.Content, &i.Assigned, &i.Started, &i.Deadline, &i.Completed, &i.Cancelled)
	return i, err
}

const assignTodo = `-- name: AssignTodo :one
UPDATE todos
SET assigned = $2
WHERE id = $1
RETURNING id, content, assigned, started, deadline, completed, cancelled
`

type AssignTodoParams struct {
	ID       int32
	Assigned *int64
}

func (q *Queries) AssignTodo(ctx context.Context, arg AssignTodoParams) (Todo, error) {
	row := q.db.QueryRow(ctx, assignTodo, arg.ID, arg.Assigned)
	var i Todo
	err := row.Scan(&i.ID, &i.Content, &i.Assigned, &i.Started, &i.Deadline, &i.Completed, &i.Cancelled)
	return i, err
}

const updateTodoContent = `-- name: UpdateTodoContent :one
UPDATE todos
SET content = $2
WHERE id = $1
RETURNING id, content, assigned, started, deadline, completed, cancelled
`

type UpdateTodoContentParams struct {
	ID      int32
	Content string
}

func (q *Queries) UpdateTodoContent(ctx context.Context, arg UpdateTodoContentParams) (Todo, error) {
	row := q.db.QueryRow(ctx, updateTodoContent, arg.ID, arg.Content)
	var i Todo
	err := row.Scan(&i.ID, &i.Content, &i.Assigned, &i.Started, &i.Deadline, &i.Completed, &i.Cancelled)
	return i, err
}

const updateTodoDeadline = `-- name: UpdateTodoDeadline :one
UPDATE todos
SET deadline = $2
WHERE id = $1
RETURNING id, content, assigned, started, deadline, completed, cancelled
`

type UpdateTodoDeadlineParams struct {
	ID       int32
	Deadline *time.Time
}

func (q *Queries) UpdateTodoDeadline(ctx context.Context, arg UpdateTodoDeadlineParams) (Todo, error) {
	row := q.db.QueryRow(ctx, updateTodoDeadline, arg.ID, arg.Deadline)
	var i Todo
	err := row.Scan(&i.ID, &i.Content, &i.Assigned, &i.Started, &i.Deadline, &i.Completed, &i.Cancelled)
	return i, err
}

const deleteTodo = `-- name: DeleteTodo :execrows
DELETE FROM todos
WHERE id = $1
`

func (q *Queries) DeleteTodo(ctx context.Context, id int32) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteTodo, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
