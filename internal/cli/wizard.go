package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dev-derah/simple-content-ai/internal/core/config"
)

const asciiArt = `
  ___ ___  _ __ | |_ ___ _ __ | |_ __ _(_)
 / __/ _ \| '_ \| __/ _ \ '_ \| __/ _' | |
| (_| (_) | | | | ||  __/ | | | || (_| | |
 \___\___/|_| |_|\__\___|_| |_|\__\__,_|_|
`

var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	stepStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	unselectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	cursorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	inputStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	inputCursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(16)
	valueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	containerStyle   = lipgloss.NewStyle().Padding(2, 4)
)

type option struct {
	label string
	value string
}

// step is one wizard screen. Option steps read and write the config through
// current and apply; input steps edit a string field in place.
type step struct {
	title       string
	description string
	options     []option
	current     func(*config.Config) string
	apply       func(*config.Config, string)
	isInput     bool
	inputValue  *string
	placeholder string
}

type wizardModel struct {
	steps       []step
	currentStep int
	cursor      int
	config      *config.Config
	confirmed   bool
	cancelled   bool
	inputBuffer string
	width       int
	height      int
}

func newWizard(cfg *config.Config) wizardModel {
	steps := []step{
		{
			title:       "Generation provider",
			description: "Model that rewrites transcripts for each platform",
			options: []option{
				{"OpenAI (gpt-4o-mini)", "openai"},
				{"Anthropic (Claude)", "anthropic"},
				{"Qwen (DashScope)", "qwen"},
			},
			current: func(c *config.Config) string { return c.Generation.Provider },
			apply: func(c *config.Config, v string) {
				if c.Generation.Provider != v {
					// Model and endpoint are provider specific.
					c.Generation.Model = ""
					c.Generation.BaseURL = ""
				}
				c.Generation.Provider = v
			},
		},
		{
			title:       "Transcription",
			description: "Speech-to-text service (OpenAI-compatible)",
			options: []option{
				{"OpenAI Whisper", "openai"},
				{"Groq Whisper", "groq"},
			},
			current: func(c *config.Config) string {
				if strings.Contains(c.Transcription.BaseURL, "groq.com") {
					return "groq"
				}
				return "openai"
			},
			apply: func(c *config.Config, v string) {
				c.Transcription.Provider = "openai"
				if v == "groq" {
					c.Transcription.BaseURL = "https://api.groq.com/openai/v1"
					c.Transcription.Model = "whisper-large-v3"
					return
				}
				c.Transcription.BaseURL = ""
				c.Transcription.Model = "whisper-1"
			},
		},
		{
			title:       "Default platforms",
			description: "Used when a request names no platforms",
			options: []option{
				{"LinkedIn, Twitter, TikTok", "linkedin,twitter,tiktok"},
				{"All five platforms", "linkedin,twitter,tiktok,youtube,instagram"},
				{"LinkedIn only", "linkedin"},
				{"Twitter only", "twitter"},
			},
			current: func(c *config.Config) string { return strings.Join(c.Pipeline.DefaultPlatforms, ",") },
			apply:   func(c *config.Config, v string) { c.Pipeline.DefaultPlatforms = strings.Split(v, ",") },
		},
		{
			title:       "Download directory",
			description: "Where instance folders with videos, audio and metadata are created",
			isInput:     true,
			inputValue:  &cfg.DownloadDir,
			placeholder: config.DefaultDownloadDir(),
		},
		{
			title:       "Proxy",
			description: "Leave empty for no proxy",
			isInput:     true,
			inputValue:  &cfg.Download.Proxy,
			placeholder: "http://127.0.0.1:7890",
		},
		{
			title:       "Confirm",
			description: "Review and save configuration",
			options: []option{
				{"Yes, save", "yes"},
				{"No, cancel", "no"},
			},
		},
	}

	m := wizardModel{steps: steps, config: cfg}
	m.setCursorFromConfig()
	return m
}

func (m *wizardModel) setCursorFromConfig() {
	step := m.steps[m.currentStep]
	if step.isInput {
		m.inputBuffer = *step.inputValue
		return
	}
	if step.current == nil {
		return
	}

	currentValue := step.current(m.config)
	for i, opt := range step.options {
		if opt.value == currentValue {
			m.cursor = i
			break
		}
	}
}

func (m wizardModel) Init() tea.Cmd {
	return nil
}

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		step := m.steps[m.currentStep]

		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit

		case "left":
			if m.currentStep > 0 {
				m.saveCurrentValue()
				m.currentStep--
				m.cursor = 0
				m.setCursorFromConfig()
			}
			return m, nil

		case "right", "enter":
			m.saveCurrentValue()

			if m.currentStep == len(m.steps)-1 {
				if m.cursor == 0 {
					m.confirmed = true
				} else {
					m.cancelled = true
				}
				return m, tea.Quit
			}

			m.currentStep++
			m.cursor = 0
			m.setCursorFromConfig()
			return m, nil

		case "up", "k":
			if !step.isInput && m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case "down", "j":
			if !step.isInput && m.cursor < len(step.options)-1 {
				m.cursor++
			}
			return m, nil

		case "backspace":
			if step.isInput && len(m.inputBuffer) > 0 {
				r := []rune(m.inputBuffer)
				m.inputBuffer = string(r[:len(r)-1])
			}
			return m, nil

		default:
			if step.isInput && msg.Type == tea.KeyRunes {
				m.inputBuffer += string(msg.Runes)
			}
			return m, nil
		}
	}

	return m, nil
}

func (m *wizardModel) saveCurrentValue() {
	step := m.steps[m.currentStep]
	if step.isInput {
		*step.inputValue = strings.TrimSpace(m.inputBuffer)
		return
	}
	if step.apply != nil && m.cursor < len(step.options) {
		step.apply(m.config, step.options[m.cursor].value)
	}
}

func (m wizardModel) View() string {
	var b strings.Builder

	b.WriteString(stepStyle.Render(fmt.Sprintf("Step %d of %d", m.currentStep+1, len(m.steps))))
	b.WriteString("\n\n")

	step := m.steps[m.currentStep]

	b.WriteString(titleStyle.Render(step.title))
	b.WriteString("\n")
	b.WriteString(stepStyle.Render(step.description))
	b.WriteString("\n\n")

	if m.currentStep == len(m.steps)-1 {
		b.WriteString(m.renderReview())
		b.WriteString("\n")
	}

	if step.isInput {
		display := m.inputBuffer
		if display == "" {
			display = stepStyle.Render(step.placeholder)
		}
		b.WriteString(inputCursorStyle.Render("> "))
		b.WriteString(inputStyle.Render(display))
		b.WriteString(inputCursorStyle.Render("█"))
		b.WriteString("\n")
	} else {
		for i, opt := range step.options {
			cursor := "  "
			style := unselectedStyle
			if i == m.cursor {
				cursor = cursorStyle.Render("> ")
				style = selectedStyle
			}
			b.WriteString(cursor)
			b.WriteString(style.Render(opt.label))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("← back • → next • ↑↓ select • enter confirm • esc quit"))

	content := containerStyle.Render(b.String())
	if m.width > 0 && m.height > 0 {
		content = lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Top, content)
	}
	return content
}

func (m wizardModel) renderReview() string {
	var b strings.Builder

	lines := []struct {
		label string
		value string
	}{
		{"Generation", m.config.Generation.Provider},
		{"Transcription", orDefault(m.config.Transcription.BaseURL, "OpenAI")},
		{"Platforms", strings.Join(m.config.Pipeline.DefaultPlatforms, ", ")},
		{"Download dir", orDefault(m.config.DownloadDir, config.DefaultDownloadDir())},
		{"Proxy", orDefault(m.config.Download.Proxy, "(none)")},
	}

	for _, line := range lines {
		b.WriteString(labelStyle.Render(line.label + ":"))
		b.WriteString(valueStyle.Render(line.value))
		b.WriteString("\n")
	}
	return b.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// runInitWizard runs the interactive setup on top of cfg.
func runInitWizard(cfg *config.Config) (*config.Config, error) {
	fmt.Print("\033[36m")
	fmt.Print(asciiArt)
	fmt.Print("\033[0m")
	fmt.Println("  Repurpose short videos into platform-ready posts")
	fmt.Println()

	p := tea.NewProgram(newWizard(cfg), tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}

	result := finalModel.(wizardModel)
	if result.cancelled || !result.confirmed {
		return nil, fmt.Errorf("configuration cancelled")
	}
	return result.config, nil
}
