/*
 * Copyright 2025 The StreamFilter Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/streamfilter/streamfilter/api/types"
	"github.com/streamfilter/streamfilter/engine"
	"github.com/streamfilter/streamfilter/utils/maps"
	"github.com/streamfilter/streamfilter/utils/str"
)

// DbStoreConfig 数据库存储配置
type DbStoreConfig struct {
	// DriverName 数据库驱动名称，mysql或postgres
	DriverName string
	// Dsn 数据库连接配置，参考sql.Open参数
	Dsn string
	// PoolSize 连接池大小
	PoolSize int
}

// DbStore 数据库过滤器存储
// DbStore persists filters in a SQL database. The condition tree is stored as
// its JSON wire form in the conditions column, so the persisted shape is the
// same one the other collaborators exchange.
type DbStore struct {
	Config DbStoreConfig
	client *sql.DB
}

// NewDbStore creates a DbStore. Call Init to open the connection.
func NewDbStore(config DbStoreConfig) *DbStore {
	if config.DriverName == "" {
		config.DriverName = "mysql"
	}
	return &DbStore{Config: config}
}

// NewDbStoreFromConfiguration 从松散配置创建DbStore
// NewDbStoreFromConfiguration decodes a loosely typed configuration map into a
// DbStore, so storage can be wired from the same kind of configuration the
// endpoints use.
func NewDbStoreFromConfiguration(configuration types.Configuration) (*DbStore, error) {
	var config DbStoreConfig
	if err := maps.Map2Struct(configuration, &config); err != nil {
		return nil, err
	}
	return NewDbStore(config), nil
}

// Init 建立连接并确保表存在
func (s *DbStore) Init() error {
	client, err := sql.Open(s.Config.DriverName, s.Config.Dsn)
	if err != nil {
		return err
	}
	if s.Config.PoolSize > 0 {
		client.SetMaxOpenConns(s.Config.PoolSize)
		client.SetMaxIdleConns(s.Config.PoolSize / 2)
	}
	if err = client.Ping(); err != nil {
		_ = client.Close()
		return err
	}
	s.client = client
	_, err = s.client.Exec(s.sql(`CREATE TABLE IF NOT EXISTS filters (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT,
		category VARCHAR(128),
		entity_type VARCHAR(128) NOT NULL,
		conditions TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		created_by VARCHAR(128)
	)`))
	return err
}

// Destroy 释放连接
func (s *DbStore) Destroy() {
	if s.client != nil {
		_ = s.client.Close()
	}
}

func (s *DbStore) Save(filter *types.Filter) (*types.Filter, error) {
	if s.client == nil {
		return nil, errors.New("db store not initialized")
	}
	if filter == nil {
		return nil, errors.New("filter can not be nil")
	}
	stamp(filter)
	conditions, err := engine.EncodeFilter(filter)
	if err != nil {
		return nil, err
	}
	result, err := s.client.Exec(s.sql(
		`UPDATE filters SET name=?, description=?, category=?, entity_type=?, conditions=?, updated_at=?, created_by=? WHERE id=?`),
		filter.Name, filter.Description, filter.Category, filter.EntityType,
		string(conditions), filter.UpdatedAt, filter.CreatedBy, filter.Id)
	if err != nil {
		return nil, err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		_, err = s.client.Exec(s.sql(
			`INSERT INTO filters (id, name, description, category, entity_type, conditions, created_at, updated_at, created_by) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			filter.Id, filter.Name, filter.Description, filter.Category, filter.EntityType,
			string(conditions), filter.CreatedAt, filter.UpdatedAt, filter.CreatedBy)
		if err != nil {
			return nil, err
		}
	}
	return filter, nil
}

func (s *DbStore) List(entityType string) ([]*types.Filter, error) {
	if s.client == nil {
		return nil, errors.New("db store not initialized")
	}
	var rows *sql.Rows
	var err error
	if entityType == "" {
		rows, err = s.client.Query(s.sql(`SELECT conditions FROM filters ORDER BY updated_at DESC`))
	} else {
		rows, err = s.client.Query(s.sql(`SELECT conditions FROM filters WHERE entity_type=? ORDER BY updated_at DESC`), entityType)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []*types.Filter
	for rows.Next() {
		var conditions string
		if err = rows.Scan(&conditions); err != nil {
			return nil, err
		}
		filter, err := engine.DecodeFilter([]byte(conditions))
		if err != nil {
			return nil, fmt.Errorf("decode stored filter: %w", err)
		}
		result = append(result, filter)
	}
	return result, rows.Err()
}

func (s *DbStore) Get(id string) (*types.Filter, error) {
	if s.client == nil {
		return nil, errors.New("db store not initialized")
	}
	var conditions string
	err := s.client.QueryRow(s.sql(`SELECT conditions FROM filters WHERE id=?`), id).Scan(&conditions)
	if err == sql.ErrNoRows {
		return nil, ErrFilterNotFound
	}
	if err != nil {
		return nil, err
	}
	return engine.DecodeFilter([]byte(conditions))
}

func (s *DbStore) Delete(id string) error {
	if s.client == nil {
		return errors.New("db store not initialized")
	}
	result, err := s.client.Exec(s.sql(`DELETE FROM filters WHERE id=?`), id)
	if err != nil {
		return err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return ErrFilterNotFound
	}
	return nil
}

// sql 按驱动转换占位符风格
func (s *DbStore) sql(query string) string {
	return str.ConvertDollarPlaceholder(query, s.Config.DriverName)
}
