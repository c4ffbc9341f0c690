package redis

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"incidentwatch/internal/visual"
	"incidentwatch/pkg/models"
)

// Envelope kinds.
const (
	KindPost  = "post"
	KindFrame = "frame"
)

// Envelope is one signal on the queue: a social post or a CCTV frame.
type Envelope struct {
	Kind  string             `json:"kind"`
	Post  *models.SocialPost `json:"post,omitempty"`
	Frame *FramePayload      `json:"frame,omitempty"`
}

// FramePayload carries one CCTV frame; Image is base64 on the wire.
type FramePayload struct {
	Source   string           `json:"source"`
	Camera   string           `json:"camera,omitempty"`
	Index    int              `json:"index"`
	Image    []byte           `json:"image"`
	Location *models.Location `json:"location,omitempty"`
}

// ToFrame converts the payload into a scorable frame.
func (p *FramePayload) ToFrame() visual.Frame {
	return visual.Frame{
		Ref:      models.FrameRef{Source: p.Source, Camera: p.Camera, Index: p.Index},
		Location: p.Location,
		Image:    p.Image,
	}
}

// Decode parses and validates an envelope.
func Decode(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	env.Kind = strings.ToLower(strings.TrimSpace(env.Kind))
	switch env.Kind {
	case KindPost:
		if env.Post == nil {
			return Envelope{}, fmt.Errorf("post envelope without post")
		}
	case KindFrame:
		if env.Frame == nil {
			return Envelope{}, fmt.Errorf("frame envelope without frame")
		}
	default:
		return Envelope{}, fmt.Errorf("unknown envelope kind %q", env.Kind)
	}
	return env, nil
}

// Encode serializes an envelope.
func Encode(env Envelope) ([]byte, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return payload, nil
}
