package domain

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"
	"strings"
)

// Extra garde les clés d'un document que le modèle ne connaît pas, pour les
// réécrire telles quelles à la sauvegarde.
type Extra map[string]json.RawMessage

func (e Extra) clone() Extra {
	if e == nil {
		return nil
	}
	out := make(Extra, len(e))
	for k, v := range e {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

type (
	showDoc    Show
	seasonDoc  Season
	audioDoc   AudioTrack
	episodeDoc EpisodeEntry
)

var (
	showKeys    = jsonKeys(reflect.TypeOf(showDoc{}))
	seasonKeys  = jsonKeys(reflect.TypeOf(seasonDoc{}))
	audioKeys   = jsonKeys(reflect.TypeOf(audioDoc{}))
	episodeKeys = jsonKeys(reflect.TypeOf(episodeDoc{}))
)

func (sh *Show) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	var d showDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	extra, err := splitExtra(data, showKeys)
	if err != nil {
		return err
	}
	*sh = Show(d)
	sh.Extra = extra
	return nil
}

func (sh Show) MarshalJSON() ([]byte, error) {
	d := showDoc(sh)
	if d.Genre == nil {
		d.Genre = []string{}
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	if d.Seasons == nil {
		d.Seasons = []Season{}
	}
	return encodeWithExtra(d, sh.Extra)
}

func (s *Season) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	var d seasonDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	extra, err := splitExtra(data, seasonKeys)
	if err != nil {
		return err
	}
	*s = Season(d)
	s.Extra = extra
	return nil
}

func (s Season) MarshalJSON() ([]byte, error) {
	d := seasonDoc(s)
	if d.Audios == nil {
		d.Audios = []AudioTrack{}
	}
	return encodeWithExtra(d, s.Extra)
}

func (a *AudioTrack) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	var d audioDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	extra, err := splitExtra(data, audioKeys)
	if err != nil {
		return err
	}
	*a = AudioTrack(d)
	a.Extra = extra
	return nil
}

func (a AudioTrack) MarshalJSON() ([]byte, error) {
	return encodeWithExtra(audioDoc(a), a.Extra)
}

func (ep *EpisodeEntry) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	var d episodeDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	extra, err := splitExtra(data, episodeKeys)
	if err != nil {
		return err
	}
	*ep = EpisodeEntry(d)
	ep.Extra = extra
	return nil
}

func (ep EpisodeEntry) MarshalJSON() ([]byte, error) {
	return encodeWithExtra(episodeDoc(ep), ep.Extra)
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

func jsonKeys(t reflect.Type) map[string]struct{} {
	keys := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		keys[name] = struct{}{}
	}
	return keys
}

func splitExtra(data []byte, known map[string]struct{}) (Extra, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	var extra Extra
	for k, v := range all {
		if _, ok := known[k]; ok {
			continue
		}
		if extra == nil {
			extra = Extra{}
		}
		extra[k] = v
	}
	return extra, nil
}

// encodeWithExtra n'échappe pas le HTML: les embeds sont des iframes.
func encodeWithExtra(v any, extra Extra) ([]byte, error) {
	body, err := encodeRaw(v)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return body, nil
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(body[:len(body)-1])
	empty := len(bytes.TrimSpace(body)) == 2
	for _, k := range keys {
		if !empty {
			buf.WriteByte(',')
		}
		empty = false
		name, err := encodeRaw(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
