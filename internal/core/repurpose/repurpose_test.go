package repurpose

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/Dev-derah/simple-content-ai/internal/core/ai/generator"
	"github.com/Dev-derah/simple-content-ai/internal/core/config"
)

func TestParseResponseLinkedIn(t *testing.T) {
	raw := `{"platforms":{"LinkedIn":{"hook":"A","storytelling":"B","value":"C","engagement_question":"D","hashtags":["#x"]}}}`
	got := ParseResponse(raw, []Platform{LinkedIn})
	if len(got) != 1 {
		t.Fatalf("len(result) = %d; want 1", len(got))
	}
	want := "A\n\nB\n\nC\n\nD\n\n#x"
	if got[LinkedIn].Text != want {
		t.Errorf("linkedin = %q; want %q", got[LinkedIn].Text, want)
	}
}

func TestParseResponseTwitter(t *testing.T) {
	raw := `{"platforms":{"Twitter":{"tweets":["one","two"]}}}`
	got := ParseResponse(raw, []Platform{Twitter})
	if got[Twitter].Text != "one\ntwo" {
		t.Errorf("twitter = %q; want %q", got[Twitter].Text, "one\ntwo")
	}
	if got[Twitter].Kind != KindThread || len(got[Twitter].Thread) != 2 {
		t.Errorf("twitter = %+v; want a two-tweet thread", got[Twitter])
	}
}

func TestParseResponseFencedAndProse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"fence", "```json\n{\"platforms\":{\"YouTube\":{\"intro\":\"hi\",\"main_content\":\"body\",\"outro\":\"bye\"}}}\n```"},
		{"bare fence", "```\n{\"platforms\":{\"YouTube\":{\"intro\":\"hi\",\"main_content\":\"body\",\"outro\":\"bye\"}}}\n```"},
		{"prose", "Here you go:\n{\"platforms\":{\"youtube\":{\"intro\":\"hi\",\"mainContent\":\"body\",\"outro\":\"bye\"}}}\nEnjoy!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseResponse(tt.raw, []Platform{YouTube})
			if want := "hi\n\nbody\n\nbye"; got[YouTube].Text != want {
				t.Errorf("youtube = %q; want %q", got[YouTube].Text, want)
			}
		})
	}
}

func TestParseResponseTikTok(t *testing.T) {
	raw := `{"platforms":{"TikTok":{"caption":"Wait for it 🔥","script":{"hook":"H","body":"B","callToAction":"Follow"}}}}`
	got := ParseResponse(raw, []Platform{TikTok})[TikTok]
	if got.Kind != KindScript {
		t.Fatalf("kind = %v; want script", got.Kind)
	}
	if got.Caption != "Wait for it 🔥" {
		t.Errorf("caption = %q", got.Caption)
	}
	if got.Script != "H\n\nB\n\nFollow" {
		t.Errorf("script = %q; want %q", got.Script, "H\n\nB\n\nFollow")
	}

	data, err := json.Marshal(got)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"caption":`) || !strings.Contains(string(data), `"script":`) {
		t.Errorf("MarshalJSON = %s; want caption and script keys", data)
	}
}

func TestParseResponseGarbage(t *testing.T) {
	all := []Platform{LinkedIn, Twitter, TikTok, YouTube, Instagram}
	inputs := []string{"", "not json at all", "{", `{"platforms": null}`, `{"platforms":{"LinkedIn":42}}`, "```"}
	for _, raw := range inputs {
		got := ParseResponse(raw, all)
		if len(got) != len(all) {
			t.Fatalf("ParseResponse(%q) has %d entries; want %d", raw, len(got), len(all))
		}
		for _, p := range all {
			if !got[p].Failed {
				t.Errorf("ParseResponse(%q)[%s] = %+v; want sentinel", raw, p, got[p])
			}
		}
		if got[TikTok].Caption != Sentinel || got[TikTok].Script != Sentinel {
			t.Errorf("tiktok sentinel = %+v; want both fields %q", got[TikTok], Sentinel)
		}
		if got[LinkedIn].Text != Sentinel {
			t.Errorf("linkedin sentinel = %q; want %q", got[LinkedIn].Text, Sentinel)
		}
	}
}

func TestParseResponseFallback(t *testing.T) {
	// Truncated output: invalid JSON, but each platform block is readable.
	raw := `{"platforms": {
  "LinkedIn": {"hook": "Big news", "storytelling": "It \"worked\"", "value": "V", "engagement_question": "Q?", "hashtags": ["#ai", "growth"]},
  "Twitter": {"tweets": ["first", "second"]},
  "TikTok": {"caption": "cap", "script": "the script is cut off`
	got := ParseResponse(raw, []Platform{TikTok, LinkedIn, Twitter, Instagram})

	if want := "Big news\n\nIt \"worked\"\n\nV\n\nQ?\n\n#ai #growth"; got[LinkedIn].Text != want {
		t.Errorf("linkedin = %q; want %q", got[LinkedIn].Text, want)
	}
	if got[Twitter].Text != "first\nsecond" {
		t.Errorf("twitter = %q; want %q", got[Twitter].Text, "first\nsecond")
	}
	if got[TikTok].Caption != "cap" || got[TikTok].Script != "the script is cut off" {
		t.Errorf("tiktok = %+v", got[TikTok])
	}
	if !got[Instagram].Failed {
		t.Errorf("instagram = %+v; want sentinel", got[Instagram])
	}
}

func TestParseResponseFallbackKeepsBlocksApart(t *testing.T) {
	// Both platforms have a caption; each must read its own.
	raw := `platforms: "TikTok": {"caption": "tiktok caption", "script": "s"} "Instagram": {"caption": "insta caption", "hashtags": ["#a"]`
	got := ParseResponse(raw, []Platform{TikTok, Instagram})
	if got[TikTok].Caption != "tiktok caption" {
		t.Errorf("tiktok caption = %q", got[TikTok].Caption)
	}
	if want := "insta caption\n\n#a"; got[Instagram].Text != want {
		t.Errorf("instagram = %q; want %q", got[Instagram].Text, want)
	}
}

func TestParseResponseUnknownPlatform(t *testing.T) {
	got := ParseResponse(`{"platforms":{}}`, []Platform{"myspace", Twitter})
	if len(got) != 2 {
		t.Fatalf("len = %d; want 2", len(got))
	}
	if !got["myspace"].Failed || !got[Twitter].Failed {
		t.Errorf("got %+v; want sentinels", got)
	}
}

func TestBuildPromptDeterministic(t *testing.T) {
	src := "  Our launch went   well.  \n\n\n\nNext steps follow.  "
	a := BuildPrompt(src, []Platform{Twitter, LinkedIn}, "Be brief.")
	b := BuildPrompt(src, []Platform{LinkedIn, Twitter, LinkedIn}, "Be brief.")
	if a != b {
		t.Fatalf("BuildPrompt is not deterministic:\n%s\n---\n%s", a, b)
	}

	directive := strings.Index(a, "ONLY a valid JSON")
	skeleton := strings.Index(a, `"platforms"`)
	constraints := strings.Index(a, "Platform requirements:")
	source := strings.Index(a, "Our launch went   well.")
	if !(directive >= 0 && directive < skeleton && skeleton < constraints && constraints < source) {
		t.Errorf("sections out of order: directive=%d skeleton=%d constraints=%d source=%d", directive, skeleton, constraints, source)
	}
	if strings.Index(a, `"LinkedIn"`) > strings.Index(a, `"Twitter"`) {
		t.Errorf("LinkedIn should precede Twitter in the skeleton")
	}
	for _, field := range []string{`"hook"`, `"storytelling"`, `"engagement_question"`, `"tweets"`} {
		if !strings.Contains(a, field) {
			t.Errorf("prompt missing field %s", field)
		}
	}
	if strings.Contains(a, "\n\n\n") || strings.Contains(a, " \n") {
		t.Errorf("prompt is not whitespace-normalized:\n%s", a)
	}
	if !strings.Contains(a, "max 280 characters") {
		t.Errorf("prompt missing twitter length constraint")
	}
	if strings.Contains(a, `"TikTok"`) {
		t.Errorf("prompt mentions a platform that was not requested")
	}
}

func TestCatalogOverrides(t *testing.T) {
	cat := DefaultCatalog().WithOverrides(map[string]config.PlatformConfig{
		"LinkedIn": {MaxLength: 1500, Tone: "casual"},
		"nowhere":  {MaxLength: 1},
	})
	if cat[LinkedIn].MaxLength != 1500 || cat[LinkedIn].Tone != "casual" || cat[LinkedIn].HashtagCount != 3 {
		t.Errorf("linkedin = %+v", cat[LinkedIn])
	}
	if DefaultCatalog()[LinkedIn].MaxLength != 2000 {
		t.Errorf("WithOverrides modified the default catalog")
	}
}

func TestParsePlatforms(t *testing.T) {
	got, err := ParsePlatforms([]string{"TikTok", "twitter", "LinkedIn", "tiktok", "X"})
	if err != nil {
		t.Fatal(err)
	}
	want := []Platform{LinkedIn, Twitter, TikTok}
	if len(got) != len(want) {
		t.Fatalf("ParsePlatforms = %v; want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ParsePlatforms[%d] = %q; want %q", i, got[i], want[i])
		}
	}
	if _, err := ParsePlatforms([]string{"myspace"}); err == nil {
		t.Error("ParsePlatforms(myspace) succeeded; want error")
	}
	if _, err := ParsePlatforms(nil); err == nil {
		t.Error("ParsePlatforms(nil) succeeded; want error")
	}
}

type fakeGenerator struct {
	replies []string
	errs    []error
	calls   int
	prompts []string
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (*generator.Result, error) {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	text := ""
	if i < len(f.replies) {
		text = f.replies[i]
	}
	return &generator.Result{Text: text, Model: "fake-1", Usage: generator.Usage{PromptTokens: 10, CompletionTokens: 5}}, nil
}

func testEngine(gen generator.Generator) *Engine {
	return NewEngine(gen, config.GenerationConfig{AIServiceConfig: config.AIServiceConfig{Attempts: 3}}, nil)
}

func TestEngineRepurpose(t *testing.T) {
	gen := &fakeGenerator{replies: []string{`{"platforms":{"Twitter":{"tweets":["one","two"]}}}`}}
	e := testEngine(gen)

	res, err := e.Repurpose(context.Background(), Request{
		SourceText: "We shipped #golang #Go #golang support",
		Platforms:  []Platform{Twitter, LinkedIn},
	}, UserProvided(e.now()))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Content) != 2 {
		t.Fatalf("content has %d entries; want 2", len(res.Content))
	}
	if res.Content[Twitter].Text != "one\ntwo" || !res.Content[LinkedIn].Failed {
		t.Errorf("content = %+v", res.Content)
	}
	if got := res.Succeeded(); len(got) != 1 || got[0] != Twitter {
		t.Errorf("Succeeded() = %v; want [twitter]", got)
	}
	md := res.Metadata
	if md.Source.Type != "user-provided" || md.Content.Language != "en" || md.Content.ContentType != "text" {
		t.Errorf("metadata = %+v", md)
	}
	if len(md.Content.Hashtags) != 2 {
		t.Errorf("hashtags = %v; want 2 unique", md.Content.Hashtags)
	}
	if md.Model != "fake-1" || md.Usage.PromptTokens != 10 {
		t.Errorf("model/usage = %q %+v", md.Model, md.Usage)
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times; want 1", gen.calls)
	}
}

func TestEngineRetriesGeneration(t *testing.T) {
	gen := &fakeGenerator{
		errs:    []error{errors.New("503"), nil},
		replies: []string{"", "ok"},
	}
	res, err := testEngine(gen).Generate(context.Background(), "p")
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "ok" || gen.calls != 2 {
		t.Errorf("Generate = %q after %d calls; want ok after 2", res.Text, gen.calls)
	}
}

func TestEngineGenerationExhausted(t *testing.T) {
	boom := errors.New("boom")
	gen := &fakeGenerator{errs: []error{boom, boom, boom, boom}}
	_, err := testEngine(gen).Repurpose(context.Background(), Request{SourceText: "x", Platforms: []Platform{Twitter}}, SourceInfo{})

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("err = %v; want GenerationError", err)
	}
	if genErr.Attempts != 3 || gen.calls != 3 || !errors.Is(err, boom) {
		t.Errorf("attempts = %d, calls = %d, err = %v", genErr.Attempts, gen.calls, err)
	}
}

func TestEngineNoContent(t *testing.T) {
	gen := &fakeGenerator{}
	_, err := testEngine(gen).Repurpose(context.Background(), Request{SourceText: "  \n", Platforms: []Platform{Twitter}}, SourceInfo{})
	if !errors.Is(err, ErrNoContent) {
		t.Errorf("err = %v; want ErrNoContent", err)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times; want 0", gen.calls)
	}
}
