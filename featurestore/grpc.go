package featurestore

import (
	"context"
	"fmt"
	"strings"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	feasttypes "github.com/feast-dev/feast/sdk/go/protos/feast/types"
)

// GrpcClient 是基于官方 Feast Go SDK 的 gRPC 客户端实现。
//
// 特征建模约定：用户偏好以 "featureView:tag" 的 double 特征存储，
// 例如 "user_style:casual" = 0.8。UserTags 批量拉取 Features
// 列出的特征，非正值/缺失的特征不计入画像。
type GrpcClient struct {
	client *feastsdk.GrpcClient

	// Project 项目名称
	Project string

	// EntityKey 实体主键名（默认 "user_id"）
	EntityKey string

	// Features 要拉取的特征引用列表，例如 ["user_style:casual", "user_style:formal"]
	Features []string

	// token 是静态认证 Token（可选）
	token string
}

// GrpcOption 是 GrpcClient 的配置选项。
type GrpcOption func(*GrpcClient)

// WithEntityKey 覆盖实体主键名。
func WithEntityKey(key string) GrpcOption {
	return func(c *GrpcClient) { c.EntityKey = key }
}

// WithStaticToken 使用静态 Token 认证连接。
func WithStaticToken(token string) GrpcOption {
	return func(c *GrpcClient) { c.token = token }
}

// NewGrpcClient 创建一个基于官方 SDK 的 Feast gRPC 客户端。
// port 为 0 时使用默认 gRPC 端口 6565。
func NewGrpcClient(host string, port int, project string, features []string, opts ...GrpcOption) (*GrpcClient, error) {
	if port == 0 {
		port = 6565
	}
	c := &GrpcClient{
		Project:   project,
		EntityKey: "user_id",
		Features:  features,
	}
	for _, opt := range opts {
		opt(c)
	}

	var client *feastsdk.GrpcClient
	var err error
	if c.token != "" {
		security := feastsdk.SecurityConfig{
			EnableTLS:  false,
			Credential: feastsdk.NewStaticCredential(c.token),
		}
		client, err = feastsdk.NewSecureGrpcClient(host, port, security)
	} else {
		client, err = feastsdk.NewGrpcClient(host, port)
	}
	if err != nil {
		return nil, fmt.Errorf("featurestore: connect %s:%d: %w", host, port, err)
	}
	c.client = client
	return c, nil
}

// UserTags 获取用户的存量偏好标签权重（实现 Client 接口）。
// 特征引用 "user_style:casual" 映射为标签 "casual"。
func (c *GrpcClient) UserTags(ctx context.Context, userID string) (map[string]float64, error) {
	out := make(map[string]float64)
	if userID == "" || len(c.Features) == 0 {
		return out, nil
	}

	req := &feastsdk.OnlineFeaturesRequest{
		Features: c.Features,
		Entities: []feastsdk.Row{
			{c.EntityKey: feastsdk.StrVal(userID)},
		},
		Project: c.Project,
	}
	resp, err := c.client.GetOnlineFeatures(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("featurestore: get online features: %w", err)
	}

	rows := resp.Rows()
	if len(rows) == 0 {
		return out, nil
	}
	row := rows[0]
	for _, ref := range c.Features {
		val, ok := row[ref]
		if !ok {
			continue
		}
		w, ok := asFloat(val)
		if !ok || w <= 0 {
			continue
		}
		out[tagName(ref)] = w
	}
	return out, nil
}

// Close 关闭客户端连接（实现 Client 接口）。
func (c *GrpcClient) Close() error {
	c.client = nil
	return nil
}

var _ Client = (*GrpcClient)(nil)

// tagName 把特征引用 "view:tag" 映射为标签名 "tag"。
func tagName(ref string) string {
	if i := strings.LastIndexByte(ref, ':'); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// asFloat 从 SDK 的 protobuf Value 提取数值特征。
func asFloat(v *feasttypes.Value) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch val := v.Val.(type) {
	case *feasttypes.Value_DoubleVal:
		return val.DoubleVal, true
	case *feasttypes.Value_FloatVal:
		return float64(val.FloatVal), true
	case *feasttypes.Value_Int64Val:
		return float64(val.Int64Val), true
	case *feasttypes.Value_Int32Val:
		return float64(val.Int32Val), true
	default:
		return 0, false
	}
}
