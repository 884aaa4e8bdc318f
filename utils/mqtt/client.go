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

// Package mqtt wraps the Paho client for the event-source endpoint:
// connect with retry, per-topic handlers re-subscribed on reconnect,
// optional TLS.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/streamfilter/streamfilter/utils/str"
)

// Handler 订阅数据处理器
type Handler struct {
	// Topic 订阅主题
	Topic string
	// Qos 订阅Qos
	Qos byte
	// Handle 接收订阅数据处理
	Handle func(c paho.Client, data paho.Message)
}

// Config 客户端配置
type Config struct {
	// Server mqtt broker 地址
	Server   string
	Username string
	Password string
	// MaxReconnectInterval 重连重试间隔
	MaxReconnectInterval time.Duration
	QOS                  uint8
	CleanSession         bool
	ClientID             string
	CAFile               string
	CertFile             string
	CertKeyFile          string
}

// Client mqtt客户端
type Client struct {
	sync.RWMutex
	client paho.Client
	// handlers 订阅主题和处理器映射
	handlers map[string]Handler
}

// NewClient connects to the broker, retrying until ctx is done.
func NewClient(ctx context.Context, conf Config) (*Client, error) {
	c := &Client{
		handlers: make(map[string]Handler),
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(conf.Server)
	opts.SetUsername(conf.Username)
	opts.SetPassword(conf.Password)
	opts.SetCleanSession(conf.CleanSession)
	if conf.ClientID == "" {
		opts.SetClientID("streamfilter/" + str.RandomStr(8))
	} else {
		opts.SetClientID(conf.ClientID)
	}
	opts.SetOnConnectHandler(c.onConnected)
	if conf.MaxReconnectInterval <= 0 {
		conf.MaxReconnectInterval = time.Second * 60
	}
	opts.SetMaxReconnectInterval(conf.MaxReconnectInterval)

	tlsConfig, err := newTLSConfig(conf.CAFile, conf.CertFile, conf.CertKeyFile)
	if err != nil {
		return nil, fmt.Errorf("error loading mqtt certificate files,ca_cert=%s,tls_cert=%s,tls_key=%s", conf.CAFile, conf.CertFile, conf.CertKeyFile)
	}
	if tlsConfig != nil {
		opts.SetTLSConfig(tlsConfig)
	}
	c.client = paho.NewClient(opts)

	for {
		if token := c.client.Connect(); token.Wait() && token.Error() != nil {
			select {
			case <-ctx.Done():
				return nil, token.Error()
			case <-time.After(2 * time.Second):
				// retry
			}
		} else {
			break
		}
	}
	return c, nil
}

// RegisterHandler 注册订阅数据处理器
func (c *Client) RegisterHandler(handler Handler) {
	c.Lock()
	defer c.Unlock()
	c.handlers[handler.Topic] = handler
	c.subscribeHandler(handler)
}

// UnregisterHandler 删除订阅数据处理器
func (c *Client) UnregisterHandler(topic string) error {
	c.Lock()
	defer c.Unlock()
	if _, ok := c.handlers[topic]; !ok {
		return nil
	}
	if token := c.client.Unsubscribe(topic); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	delete(c.handlers, topic)
	return nil
}

// Publish 发布数据
func (c *Client) Publish(topic string, qos byte, data []byte) error {
	if token := c.client.Publish(topic, qos, false, data); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (c *Client) Close() error {
	c.RLock()
	handlers := make([]Handler, 0, len(c.handlers))
	for _, handler := range c.handlers {
		handlers = append(handlers, handler)
	}
	c.RUnlock()
	for _, handler := range handlers {
		c.client.Unsubscribe(handler.Topic)
	}
	c.client.Disconnect(500)
	return nil
}

// onConnected 重连后恢复全部订阅
func (c *Client) onConnected(paho.Client) {
	c.RLock()
	handlers := make([]Handler, 0, len(c.handlers))
	for _, handler := range c.handlers {
		handlers = append(handlers, handler)
	}
	c.RUnlock()
	for _, handler := range handlers {
		c.subscribeHandler(handler)
	}
}

func (c *Client) subscribeHandler(handler Handler) {
	for {
		if token := c.client.Subscribe(handler.Topic, handler.Qos, handler.Handle); token.Wait() && token.Error() != nil {
			time.Sleep(2 * time.Second)
			continue
		}
		break
	}
}

func newTLSConfig(caFile, certFile, certKeyFile string) (*tls.Config, error) {
	if caFile == "" && certFile == "" && certKeyFile == "" {
		return nil, nil
	}
	tlsConfig := &tls.Config{}
	if caFile != "" {
		caCert, err := os.ReadFile(caFile)
		if err != nil {
			return nil, err
		}
		certPool := x509.NewCertPool()
		certPool.AppendCertsFromPEM(caCert)
		tlsConfig.RootCAs = certPool
	}
	if certFile != "" && certKeyFile != "" {
		kp, err := tls.LoadX509KeyPair(certFile, certKeyFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.Certificates = []tls.Certificate{kp}
	}
	return tlsConfig, nil
}
