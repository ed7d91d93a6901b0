package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type ConsoleConfig struct {
	APIBaseURL string
	Locale     string
	Timeout    time.Duration
}

func main() {
	cfg := &ConsoleConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		Locale:     getEnv("LOCALE", ""),
		Timeout:    30 * time.Second,
	}

	api := &apiClient{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.APIBaseURL,
	}

	if !api.testConnection() {
		fmt.Fprintf(os.Stderr, "Could not connect to API. Please ensure the API is running.\nTry: docker-compose up -d\n")
		os.Exit(1)
	}

	info, err := api.gameInfo()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to fetch story info: %v\n", err)
		os.Exit(1)
	}

	locale := cfg.Locale
	if locale == "" {
		fmt.Printf("%s", formatLocalePrompt(info.Title, info.Locales))
		var choice int
		if _, err := fmt.Scanf("%d", &choice); err != nil || choice < 1 || choice > len(info.Locales) {
			fmt.Fprintf(os.Stderr, "Invalid selection\n")
			os.Exit(1)
		}
		locale = info.Locales[choice-1]
	} else {
		locale, err = api.chooseLocale([]string{locale})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to choose locale: %v\n", err)
			os.Exit(1)
		}
	}

	session, err := api.startSession(locale, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start session: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(api, info, session.SessionID),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func formatLocalePrompt(title string, locales []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nAvailable languages:\n", title)
	for i, loc := range locales {
		fmt.Fprintf(&b, "  %d - %s\n", i+1, loc)
	}
	b.WriteString("\nSelect a language by number: ")
	return b.String()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
