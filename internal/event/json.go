package event

import "encoding/json"

// jsonTag mirrors one Tag as the wire shape described in spec §6: a JSON
// object keyed by "kind" with sibling fields per variant. Fields are
// omitempty so each variant only emits what it needs.
type jsonTag struct {
	Kind TagKind `json:"kind"`

	Path     string   `json:"path,omitempty"`
	FileType FileType `json:"filetype,omitempty"`

	Simple FSKind `json:"simple,omitempty"`
	Full   string `json:"full,omitempty"`

	Source Source `json:"source,omitempty"`

	Key Keycode `json:"key,omitempty"`

	PID int `json:"pid,omitempty"`

	Signal SignalName `json:"signal,omitempty"`

	Disposition Disposition `json:"disposition,omitempty"`
	Code        int         `json:"code,omitempty"`
}

func toJSONTag(t Tag) jsonTag {
	return jsonTag{
		Kind:        t.Kind,
		Path:        t.Path,
		FileType:    t.FileType,
		Simple:      t.FSSimple,
		Full:        t.FSFull,
		Source:      t.Source,
		Key:         t.Key,
		PID:         t.PID,
		Signal:      t.Signal,
		Disposition: t.Disposition,
		Code:        t.Code,
	}
}

func fromJSONTag(j jsonTag) Tag {
	return Tag{
		Kind:        j.Kind,
		Path:        j.Path,
		FileType:    j.FileType,
		FSSimple:    j.Simple,
		FSFull:      j.Full,
		Source:      j.Source,
		Key:         j.Key,
		PID:         j.PID,
		Signal:      j.Signal,
		Disposition: j.Disposition,
		Code:        j.Code,
	}
}

// jsonEvent is the wire shape `{ "tags": [...], "metadata": {...} }`.
type jsonEvent struct {
	Tags     []jsonTag         `json:"tags"`
	Metadata map[string]string `json:"metadata"`
}

// MarshalJSON implements json.Marshaler per the wire format in spec §6.
func (e Event) MarshalJSON() ([]byte, error) {
	je := jsonEvent{
		Tags:     make([]jsonTag, len(e.tags)),
		Metadata: e.metadata,
	}
	if je.Metadata == nil {
		je.Metadata = map[string]string{}
	}
	for i, t := range e.tags {
		je.Tags[i] = toJSONTag(t)
	}
	return json.Marshal(je)
}

// UnmarshalJSON implements json.Unmarshaler for round-tripping events, used
// by tests and by any child process that wants to re-parse emitted events.
func (e *Event) UnmarshalJSON(data []byte) error {
	var je jsonEvent
	if err := json.Unmarshal(data, &je); err != nil {
		return err
	}
	tags := make([]Tag, len(je.Tags))
	for i, jt := range je.Tags {
		tags[i] = fromJSONTag(jt)
	}
	e.tags = tags
	e.metadata = je.Metadata
	return nil
}
