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

// Package rest exposes the filter CRUD and test surface over HTTP.
//
// Validation failures and external (storage) failures carry distinct error
// classes in the response body, so a client can offer "fix and resave" for the
// former and "retry" for the latter.
package rest

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/streamfilter/streamfilter/api/types"
	"github.com/streamfilter/streamfilter/engine"
	"github.com/streamfilter/streamfilter/storage"
	"github.com/streamfilter/streamfilter/utils/json"
)

const (
	ContentTypeKey  = "Content-Type"
	JsonContextType = "application/json"
)

// error classes, see package doc
const (
	ErrorClassValidation = "validation"
	ErrorClassExternal   = "external"
	ErrorClassNotFound   = "not_found"
	ErrorClassBadRequest = "bad_request"
)

// Config Rest 服务配置
type Config struct {
	Addr        string
	CertFile    string
	CertKeyFile string
	// MaxTestExamples 测试接口返回的命中样例上限
	MaxTestExamples int
}

// Rest 过滤器管理HTTP服务
type Rest struct {
	Config     Config
	CoreConfig types.Config

	engine *engine.Engine
	store  storage.Store
	router *httprouter.Router
	server *http.Server
}

// New creates the REST surface over an engine and a store.
func New(config Config, coreConfig types.Config, filterEngine *engine.Engine, store storage.Store) *Rest {
	r := &Rest{
		Config:     config,
		CoreConfig: coreConfig,
		engine:     filterEngine,
		store:      store,
	}
	r.router = httprouter.New()
	r.router.POST("/filters", r.saveFilter)
	r.router.GET("/filters", r.listFilters)
	r.router.GET("/filters/:id", r.getFilter)
	r.router.DELETE("/filters/:id", r.deleteFilter)
	r.router.POST("/filters/:id/test", r.testFilter)
	r.router.POST("/test", r.testDraftFilter)
	r.router.GET("/stats/:id", r.getStats)
	r.router.GET("/catalog", r.getCatalog)
	return r
}

// Router returns the underlying httprouter, so other surfaces (websocket)
// can share the listener.
func (r *Rest) Router() *httprouter.Router {
	return r.router
}

func (r *Rest) Start() error {
	r.server = &http.Server{Addr: r.Config.Addr, Handler: r.router}
	if r.Config.CertKeyFile != "" && r.Config.CertFile != "" {
		r.printf("started rest server with TLS on %s", r.Config.Addr)
		return r.server.ListenAndServeTLS(r.Config.CertFile, r.Config.CertKeyFile)
	}
	r.printf("started rest server on %s", r.Config.Addr)
	return r.server.ListenAndServe()
}

func (r *Rest) Close() error {
	if r.server != nil {
		return r.server.Shutdown(context.Background())
	}
	return nil
}

// saveFilter 校验并保存过滤器，校验失败不落库
func (r *Rest) saveFilter(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	filter, ok := r.decodeFilter(w, req)
	if !ok {
		return
	}
	if result := r.engine.Validator().Validate(filter); !result.Valid {
		writeJson(w, http.StatusBadRequest, map[string]interface{}{
			"errorClass": ErrorClassValidation,
			"errors":     result.Errors,
		})
		return
	}
	saved, err := r.store.Save(filter)
	if err != nil {
		r.writeExternalError(w, err)
		return
	}
	writeJson(w, http.StatusOK, saved)
}

func (r *Rest) listFilters(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	filters, err := r.store.List(req.URL.Query().Get("entityType"))
	if err != nil {
		r.writeExternalError(w, err)
		return
	}
	writeJson(w, http.StatusOK, filters)
}

func (r *Rest) getFilter(w http.ResponseWriter, _ *http.Request, params httprouter.Params) {
	filter, err := r.store.Get(params.ByName("id"))
	if errors.Is(err, storage.ErrFilterNotFound) {
		writeJson(w, http.StatusNotFound, map[string]interface{}{
			"errorClass": ErrorClassNotFound, "error": err.Error(),
		})
		return
	}
	if err != nil {
		r.writeExternalError(w, err)
		return
	}
	writeJson(w, http.StatusOK, filter)
}

func (r *Rest) deleteFilter(w http.ResponseWriter, _ *http.Request, params httprouter.Params) {
	err := r.store.Delete(params.ByName("id"))
	if errors.Is(err, storage.ErrFilterNotFound) {
		writeJson(w, http.StatusNotFound, map[string]interface{}{
			"errorClass": ErrorClassNotFound, "error": err.Error(),
		})
		return
	}
	if err != nil {
		r.writeExternalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// testFilter 用样本记录测试已保存的过滤器
func (r *Rest) testFilter(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
	filter, err := r.store.Get(params.ByName("id"))
	if errors.Is(err, storage.ErrFilterNotFound) {
		writeJson(w, http.StatusNotFound, map[string]interface{}{
			"errorClass": ErrorClassNotFound, "error": err.Error(),
		})
		return
	}
	if err != nil {
		r.writeExternalError(w, err)
		return
	}
	r.runTest(w, req, filter)
}

// testDraftFilter 测试请求体里携带的未保存过滤器
func (r *Rest) testDraftFilter(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		writeJson(w, http.StatusBadRequest, map[string]interface{}{
			"errorClass": ErrorClassBadRequest, "error": err.Error(),
		})
		return
	}
	var payload struct {
		Filter  *types.Filter  `json:"filter"`
		Records []types.Record `json:"records"`
	}
	if err = json.Unmarshal(body, &payload); err != nil || payload.Filter == nil {
		writeJson(w, http.StatusBadRequest, map[string]interface{}{
			"errorClass": ErrorClassBadRequest, "error": "filter is required",
		})
		return
	}
	result, err := r.engine.TestFilter(payload.Filter, payload.Records, r.Config.MaxTestExamples)
	if err != nil {
		writeJson(w, http.StatusBadRequest, map[string]interface{}{
			"errorClass": ErrorClassValidation, "error": err.Error(),
		})
		return
	}
	writeJson(w, http.StatusOK, result)
}

func (r *Rest) runTest(w http.ResponseWriter, req *http.Request, filter *types.Filter) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		writeJson(w, http.StatusBadRequest, map[string]interface{}{
			"errorClass": ErrorClassBadRequest, "error": err.Error(),
		})
		return
	}
	var payload struct {
		Records []types.Record `json:"records"`
	}
	if len(body) > 0 {
		if err = json.Unmarshal(body, &payload); err != nil {
			writeJson(w, http.StatusBadRequest, map[string]interface{}{
				"errorClass": ErrorClassBadRequest, "error": err.Error(),
			})
			return
		}
	}
	result, err := r.engine.TestFilter(filter, payload.Records, r.Config.MaxTestExamples)
	if err != nil {
		writeJson(w, http.StatusBadRequest, map[string]interface{}{
			"errorClass": ErrorClassValidation, "error": err.Error(),
		})
		return
	}
	writeJson(w, http.StatusOK, result)
}

func (r *Rest) getStats(w http.ResponseWriter, _ *http.Request, params httprouter.Params) {
	snapshot := r.engine.Stats().Snapshot(params.ByName("id"))
	if snapshot == nil {
		writeJson(w, http.StatusNotFound, map[string]interface{}{
			"errorClass": ErrorClassNotFound, "error": "no statistics recorded",
		})
		return
	}
	writeJson(w, http.StatusOK, map[string]interface{}{
		"statistics": snapshot,
		"band":       types.EfficiencyBand(snapshot.EfficiencyScore),
	})
}

func (r *Rest) getCatalog(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJson(w, http.StatusOK, r.engine.Registry().EntityTypes())
}

func (r *Rest) decodeFilter(w http.ResponseWriter, req *http.Request) (*types.Filter, bool) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		writeJson(w, http.StatusBadRequest, map[string]interface{}{
			"errorClass": ErrorClassBadRequest, "error": err.Error(),
		})
		return nil, false
	}
	filter, err := engine.DecodeFilter(body)
	if err != nil {
		writeJson(w, http.StatusBadRequest, map[string]interface{}{
			"errorClass": ErrorClassBadRequest, "error": err.Error(),
		})
		return nil, false
	}
	return filter, true
}

// writeExternalError 外部协作方失败，与校验失败区分开
func (r *Rest) writeExternalError(w http.ResponseWriter, err error) {
	r.printf("rest: external failure: %v", err)
	writeJson(w, http.StatusBadGateway, map[string]interface{}{
		"errorClass": ErrorClassExternal, "error": err.Error(),
	})
}

func writeJson(w http.ResponseWriter, statusCode int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set(ContentTypeKey, JsonContextType)
	w.WriteHeader(statusCode)
	_, _ = w.Write(data)
}

func (r *Rest) printf(format string, v ...interface{}) {
	if r.CoreConfig.Logger != nil {
		r.CoreConfig.Logger.Printf(format, v...)
	}
}
