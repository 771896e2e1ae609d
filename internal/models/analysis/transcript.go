// Package analysis 定义与 STT、AI 分析服务交互的结构化载荷。
// 结果文档按可选节（pointer）建模，缺失的节不会导致解析失败。
package analysis

import (
	"encoding/json"
	"strings"
)

// Speaker 为分离说话人的标识。
type Speaker struct {
	Label string `json:"label"`
	Name  string `json:"name"`
}

// Segment 为一段带说话人的转写文本，时间单位毫秒。
type Segment struct {
	Start   int64   `json:"start"`
	End     int64   `json:"end"`
	Text    string  `json:"text"`
	Speaker Speaker `json:"speaker"`
}

// Transcript 为 STT 输出。Raw 保留原始响应用于持久化。
type Transcript struct {
	Text     string          `json:"text"`
	Segments []Segment       `json:"segments"`
	Raw      json.RawMessage `json:"-"`
}

// ParseTranscript 解析 STT 原始响应。
func ParseTranscript(raw []byte) (*Transcript, error) {
	var t Transcript
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, err
	}
	t.Raw = append(json.RawMessage(nil), raw...)
	return &t, nil
}

// Utterances 将转写片段转换为 AI 请求的发言列表，跳过空文本。
func (t *Transcript) Utterances() []Utterance {
	if t == nil {
		return nil
	}
	out := make([]Utterance, 0, len(t.Segments))
	for _, seg := range t.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		speaker := seg.Speaker.Name
		if speaker == "" {
			speaker = seg.Speaker.Label
		}
		out = append(out, Utterance{
			Speaker:   speaker,
			Text:      text,
			Timestamp: seg.Start,
		})
	}
	return out
}
