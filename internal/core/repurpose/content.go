package repurpose

import "encoding/json"

// Sentinel is the content placed for any platform the response could not fill.
const Sentinel = "Content generation failed"

// Content is one platform's normalized output. Text and thread kinds carry a
// single string; scripts carry a caption and a script.
type Content struct {
	Kind    Kind
	Text    string
	Thread  []string
	Caption string
	Script  string
	Failed  bool
}

type scriptJSON struct {
	Caption string `json:"caption"`
	Script  string `json:"script"`
}

// MarshalJSON renders script content as an object and everything else as a string.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.Kind == KindScript {
		return json.Marshal(scriptJSON{Caption: c.Caption, Script: c.Script})
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON accepts either shape produced by MarshalJSON.
func (c *Content) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Kind = KindText
		c.Text = s
		c.Failed = s == Sentinel
		return nil
	}
	var sc scriptJSON
	if err := json.Unmarshal(data, &sc); err != nil {
		return err
	}
	*c = Content{Kind: KindScript, Caption: sc.Caption, Script: sc.Script}
	c.Failed = sc.Caption == Sentinel && sc.Script == Sentinel
	return nil
}

// String renders the content as plain text.
func (c Content) String() string {
	if c.Kind == KindScript {
		return "Caption: " + c.Caption + "\n\nScript:\n" + c.Script
	}
	return c.Text
}

// failed returns the sentinel content for a platform of the given kind.
func failed(kind Kind) Content {
	if kind == KindScript {
		return Content{Kind: kind, Caption: Sentinel, Script: Sentinel, Failed: true}
	}
	return Content{Kind: kind, Text: Sentinel, Failed: true}
}
