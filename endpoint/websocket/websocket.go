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

// Package websocket pushes matched events to subscribed clients.
//
// A client opens GET /subscribe/:filterId; every record the filter matches is
// written to the connection as a JSON frame. The engine subscription lives
// exactly as long as the connection.
package websocket

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/streamfilter/streamfilter/api/types"
	"github.com/streamfilter/streamfilter/engine"
	"github.com/streamfilter/streamfilter/storage"
	"github.com/streamfilter/streamfilter/utils/json"
)

// Config Websocket 服务配置
type Config struct {
	Addr        string
	CertFile    string
	CertKeyFile string
}

// Websocket 订阅推送端点
type Websocket struct {
	Config     Config
	CoreConfig types.Config
	Upgrader   websocket.Upgrader

	engine *engine.Engine
	store  storage.Store
	router *httprouter.Router
	server *http.Server
}

// New creates the subscription surface over an engine and a store.
// When router is nil a private router is created; pass the REST surface's
// router to share one listener.
func New(config Config, coreConfig types.Config, filterEngine *engine.Engine, store storage.Store, router *httprouter.Router) *Websocket {
	ws := &Websocket{
		Config:     config,
		CoreConfig: coreConfig,
		engine:     filterEngine,
		store:      store,
		router:     router,
	}
	if ws.router == nil {
		ws.router = httprouter.New()
	}
	ws.router.GET("/subscribe/:filterId", ws.subscribe)
	return ws
}

func (ws *Websocket) Start() error {
	ws.server = &http.Server{Addr: ws.Config.Addr, Handler: ws.router}
	if ws.Config.CertKeyFile != "" && ws.Config.CertFile != "" {
		ws.printf("started ws server with TLS on %s", ws.Config.Addr)
		return ws.server.ListenAndServeTLS(ws.Config.CertFile, ws.Config.CertKeyFile)
	}
	ws.printf("started ws server on %s", ws.Config.Addr)
	return ws.server.ListenAndServe()
}

func (ws *Websocket) Close() error {
	if ws.server != nil {
		return ws.server.Shutdown(context.Background())
	}
	return nil
}

// matchFrame 推送给客户端的一帧
type matchFrame struct {
	FilterId string       `json:"filterId"`
	Record   types.Record `json:"record"`
}

func (ws *Websocket) subscribe(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	filter, err := ws.store.Get(params.ByName("filterId"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	conn, err := ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.printf("ws: upgrade: %v", err)
		return
	}

	// serialize writes, matches arrive from the event goroutine
	var locker sync.Mutex
	subscriptionId, err := ws.engine.Subscribe(filter, func(filterId string, record types.Record) {
		frame, err := json.Marshal(matchFrame{FilterId: filterId, Record: record})
		if err != nil {
			return
		}
		locker.Lock()
		defer locker.Unlock()
		if err = conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			ws.printf("ws: write: %v", err)
		}
	})
	if err != nil {
		locker.Lock()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
		locker.Unlock()
		_ = conn.Close()
		return
	}
	ws.printf("ws: subscribed filter %s as %s", filter.Id, subscriptionId)

	defer func() {
		_ = ws.engine.Unsubscribe(subscriptionId)
		_ = conn.Close()
		ws.printf("ws: unsubscribed %s", subscriptionId)
	}()
	// the read loop only watches for the client going away
	for {
		if _, _, err = conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (ws *Websocket) printf(format string, v ...interface{}) {
	if ws.CoreConfig.Logger != nil {
		ws.CoreConfig.Logger.Printf(format, v...)
	}
}
