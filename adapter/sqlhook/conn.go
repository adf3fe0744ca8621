// Copyright 2025 The Shuffler Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sqlhook

import (
	"context"
	"database/sql/driver"
	"errors"

	"github.com/qweeze/shuffler/strategy"
)

// wrappedConn forwards every [driver.Conn] method to the underlying
// connection, interposing a yield point ahead of statement execution when
// the underlying connection and statements support the *Context variants.
// Base drivers without ExecerContext/QueryerContext support still work for
// Prepare-based execution, since wrappedStmt applies the same hook.
type wrappedConn[T strategy.TaskID] struct {
	driver.Conn
	hook *Driver[T]
}

func (c *wrappedConn[T]) Prepare(query string) (driver.Stmt, error) {
	stmt, err := c.Conn.Prepare(query)
	if err != nil {
		return nil, err
	}
	return &wrappedStmt[T]{Stmt: stmt, hook: c.hook, query: query}, nil
}

func (c *wrappedConn[T]) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	preparer, ok := c.Conn.(driver.ConnPrepareContext)
	var stmt driver.Stmt
	var err error
	if ok {
		stmt, err = preparer.PrepareContext(ctx, query)
	} else {
		stmt, err = c.Conn.Prepare(query)
	}
	if err != nil {
		return nil, err
	}
	return &wrappedStmt[T]{Stmt: stmt, hook: c.hook, query: query}, nil
}

func (c *wrappedConn[T]) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	execer, ok := c.Conn.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	c.hook.beforeExecute(ctx, query)
	return execer.ExecContext(ctx, query, args)
}

func (c *wrappedConn[T]) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	queryer, ok := c.Conn.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	c.hook.beforeExecute(ctx, query)
	return queryer.QueryContext(ctx, query, args)
}

func (c *wrappedConn[T]) CheckNamedValue(nv *driver.NamedValue) error {
	checker, ok := c.Conn.(driver.NamedValueChecker)
	if !ok {
		return driver.ErrSkip
	}
	return checker.CheckNamedValue(nv)
}

func (c *wrappedConn[T]) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	beginner, ok := c.Conn.(driver.ConnBeginTx)
	if !ok {
		return c.Conn.Begin()
	}
	return beginner.BeginTx(ctx, opts)
}

// wrappedStmt applies the same before-execute hook to prepared-statement
// execution, since original_source's `before_cursor_execute` fires for both
// direct execution and execution via a prepared cursor.
type wrappedStmt[T strategy.TaskID] struct {
	driver.Stmt
	hook  *Driver[T]
	query string
}

func (s *wrappedStmt[T]) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	execer, ok := s.Stmt.(driver.StmtExecContext)
	if !ok {
		return nil, errors.New("sqlhook: underlying statement does not support ExecContext")
	}
	s.hook.beforeExecute(ctx, s.query)
	return execer.ExecContext(ctx, args)
}

func (s *wrappedStmt[T]) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	queryer, ok := s.Stmt.(driver.StmtQueryContext)
	if !ok {
		return nil, errors.New("sqlhook: underlying statement does not support QueryContext")
	}
	s.hook.beforeExecute(ctx, s.query)
	return queryer.QueryContext(ctx, args)
}
