// Package aianalysis 封装外部 AI 分析服务：提交分析任务与轮询执行状态。
package aianalysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/httpclient"
	"github.com/bionicotaku/lingo-services-analysis/internal/models/analysis"

	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// ErrEmptyExecutionID 表示提交成功但未返回 execution id。
var ErrEmptyExecutionID = errors.New("aianalysis: empty execution id")

// Client 调用 AI 分析服务。
type Client struct {
	http *khttp.Client
	log  *log.Helper
}

// NewClient 构造 AI 分析客户端。
func NewClient(ctx context.Context, cfg configloader.AIConfig, logger log.Logger) (*Client, func(), error) {
	hc, cleanup, err := httpclient.New(ctx, httpclient.Config{
		Name:     "aianalysis",
		Endpoint: cfg.Endpoint,
		Timeout:  cfg.Timeout.Std(),
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return &Client{
		http: hc,
		log:  log.NewHelper(log.With(logger, "component", "aianalysis")),
	}, cleanup, nil
}

// Submit 提交分析请求，返回 execution id。
func (c *Client) Submit(ctx context.Context, req *analysis.Request) (string, error) {
	if req == nil {
		return "", errors.New("aianalysis: request is required")
	}
	var reply analysis.SubmitResponse
	if err := c.http.Invoke(ctx, http.MethodPost, "/analyze", req, &reply); err != nil {
		return "", fmt.Errorf("aianalysis: submit: %w", err)
	}
	id := strings.TrimSpace(reply.ExecutionID)
	if id == "" {
		return "", ErrEmptyExecutionID
	}
	c.log.WithContext(ctx).Infof("analysis submitted: execution_id=%s status=%s", id, reply.Status)
	return id, nil
}

// Poll 查询执行状态。
func (c *Client) Poll(ctx context.Context, executionID string) (*analysis.Snapshot, error) {
	if strings.TrimSpace(executionID) == "" {
		return nil, ErrEmptyExecutionID
	}
	var snap analysis.Snapshot
	if err := c.http.Invoke(ctx, http.MethodGet, "/status/"+url.PathEscape(executionID), nil, &snap); err != nil {
		return nil, fmt.Errorf("aianalysis: status %s: %w", executionID, err)
	}
	return &snap, nil
}
