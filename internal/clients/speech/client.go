// Package speech 封装 CLOVA Speech 长语音识别接口（URL 模式，同步返回）。
package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/httpclient"
	"github.com/bionicotaku/lingo-services-analysis/internal/models/analysis"

	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// APIKeyHeader 为 CLOVA Speech 鉴权请求头。
const APIKeyHeader = "X-CLOVASPEECH-API-KEY"

const recognizePath = "/recognizer/url"

// ErrRecognitionFailed 表示 STT 服务返回了非 COMPLETED 结果。
var ErrRecognitionFailed = errors.New("speech: recognition failed")

type diarization struct {
	Enable bool `json:"enable"`
}

type recognizeRequest struct {
	URL         string      `json:"url"`
	Language    string      `json:"language"`
	Completion  string      `json:"completion"`
	FullText    bool        `json:"fullText"`
	Diarization diarization `json:"diarization"`
}

type recognizeEnvelope struct {
	Result  string `json:"result"`
	Message string `json:"message"`
}

// Client 调用 STT 服务。
type Client struct {
	http       *khttp.Client
	invokePath string
	language   string
	log        *log.Helper
}

// NewClient 构造 STT 客户端。
func NewClient(ctx context.Context, cfg configloader.SpeechConfig, logger log.Logger) (*Client, func(), error) {
	hc, cleanup, err := httpclient.New(ctx, httpclient.Config{
		Name:     "speech",
		Endpoint: cfg.Endpoint,
		Timeout:  cfg.Timeout.Std(),
		Headers:  map[string]string{APIKeyHeader: cfg.SecretKey},
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	lang := cfg.Language
	if lang == "" {
		lang = "ko-KR"
	}
	return &Client{
		http:       hc,
		invokePath: "/" + strings.Trim(cfg.InvokePath, "/"),
		language:   lang,
		log:        log.NewHelper(log.With(logger, "component", "speech")),
	}, cleanup, nil
}

// Transcribe 提交可访问的媒体地址并同步等待转写结果。
func (c *Client) Transcribe(ctx context.Context, sourceURL string) (*analysis.Transcript, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return nil, errors.New("speech: source url is required")
	}
	req := &recognizeRequest{
		URL:         sourceURL,
		Language:    c.language,
		Completion:  "sync",
		FullText:    true,
		Diarization: diarization{Enable: true},
	}

	var raw json.RawMessage
	if err := c.http.Invoke(ctx, http.MethodPost, c.path(), req, &raw); err != nil {
		return nil, fmt.Errorf("speech: recognize: %w", err)
	}

	var env recognizeEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("speech: decode response: %w", err)
	}
	if env.Result != "" && !strings.EqualFold(env.Result, "COMPLETED") {
		return nil, fmt.Errorf("%w: %s %s", ErrRecognitionFailed, env.Result, env.Message)
	}

	transcript, err := analysis.ParseTranscript(raw)
	if err != nil {
		return nil, fmt.Errorf("speech: decode transcript: %w", err)
	}
	c.log.WithContext(ctx).Infof("speech recognized: segments=%d", len(transcript.Segments))
	return transcript, nil
}

func (c *Client) path() string {
	if c.invokePath == "/" {
		return recognizePath
	}
	return c.invokePath + recognizePath
}
