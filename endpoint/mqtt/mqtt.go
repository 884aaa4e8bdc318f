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

// Package mqtt feeds the engine from an MQTT broker. Each subscribed topic is
// bound to one entity type; payloads are JSON objects decoded into records.
package mqtt

import (
	"context"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/streamfilter/streamfilter/api/types"
	"github.com/streamfilter/streamfilter/engine"
	"github.com/streamfilter/streamfilter/utils/json"
	"github.com/streamfilter/streamfilter/utils/mqtt"
)

// Config Mqtt 事件源配置
type Config struct {
	mqtt.Config
	// Topics 主题到实体类型的映射
	Topics map[string]string
}

// Mqtt 订阅broker主题并把消息投递给引擎
type Mqtt struct {
	Config     Config
	CoreConfig types.Config

	engine *engine.Engine
	client *mqtt.Client
}

// New creates the MQTT event source. Start connects and subscribes.
func New(config Config, coreConfig types.Config, filterEngine *engine.Engine) *Mqtt {
	return &Mqtt{
		Config:     config,
		CoreConfig: coreConfig,
		engine:     filterEngine,
	}
}

// Start 连接broker并订阅全部配置的主题
func (m *Mqtt) Start(ctx context.Context) error {
	client, err := mqtt.NewClient(ctx, m.Config.Config)
	if err != nil {
		return err
	}
	m.client = client
	for topic, entityType := range m.Config.Topics {
		m.client.RegisterHandler(mqtt.Handler{
			Topic:  topic,
			Qos:    m.Config.QOS,
			Handle: m.handlerFor(entityType),
		})
	}
	m.printf("started mqtt event source on %s", m.Config.Server)
	return nil
}

func (m *Mqtt) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// handlerFor 解码消息并投递，坏消息记日志后丢弃
func (m *Mqtt) handlerFor(entityType string) func(c paho.Client, data paho.Message) {
	return func(c paho.Client, data paho.Message) {
		var record types.Record
		if err := json.Unmarshal(data.Payload(), &record); err != nil {
			m.printf("mqtt: drop malformed payload on %s: %v", data.Topic(), err)
			return
		}
		m.engine.OnEvent(entityType, record)
	}
}

func (m *Mqtt) printf(format string, v ...interface{}) {
	if m.CoreConfig.Logger != nil {
		m.CoreConfig.Logger.Printf(format, v...)
	}
}
