package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/liuran001/MusicPreview-Go/music/controller"
)

func (m Model) View() string {
	var body string
	if m.state.Mode() == controller.ModeDetail {
		body = m.detailView()
	} else {
		body = m.listView()
	}
	return m.styles.App.Render(body)
}

func (m Model) listView() string {
	parts := []string{m.input.View(), ""}

	switch {
	case m.state.Searching:
		parts = append(parts, m.spinner.View()+" Recherche...")
	case m.state.LoadingDetail:
		parts = append(parts, m.spinner.View()+" Chargement...")
	}

	if len(m.state.Results) > 0 {
		parts = append(parts, m.results.View())
	} else if strings.TrimSpace(m.state.Query) != "" && !m.state.Searching {
		parts = append(parts, m.styles.Help.Render("Aucun résultat"))
	}

	parts = append(parts, "", m.styles.Help.Render("[↑/↓] naviguer | [Entrée] détails | [ctrl+c] quitter"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) detailView() string {
	track := m.state.Selected
	pb := m.state.Playback

	parts := make([]string, 0, 16)
	if m.art.Cover != "" {
		parts = append(parts, m.art.Cover, "")
	}
	parts = append(parts, m.styles.Title.Render("TITRE : "+track.Title))
	if m.art.Artist != "" {
		parts = append(parts, m.art.Artist)
	}
	parts = append(parts,
		m.styles.Label.Render("Artiste : "+track.Artist.Name),
		m.styles.Label.Render("Album : "+track.Album.Title),
		m.styles.Label.Render(fmt.Sprintf("Durée : %d secondes", track.DurationSeconds())),
		"",
		m.progress.ViewAs(ratio(pb.PositionMillis, pb.DurationMillis)),
		fmt.Sprintf("%s / %s", formatMillis(pb.PositionMillis), formatMillis(pb.DurationMillis)),
		"",
	)

	if pb.Status == controller.StatusFailed {
		parts = append(parts, m.styles.ButtonAlert.Render("Réessayer"))
		if pb.Failure != nil {
			parts = append(parts, m.styles.ErrorText.Render(pb.Failure.Message))
		}
	} else {
		parts = append(parts, m.styles.Button.Render(buttonLabel(pb)))
	}

	parts = append(parts,
		"",
		m.styles.Back.Render("Retour aux résultats"),
		"",
		m.styles.Help.Render("[espace] lecture/pause | [←/→] avancer/reculer | [s] stop | [r] réessayer | [échap] retour"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func buttonLabel(pb controller.PlaybackState) string {
	switch {
	case pb.IsPlaying:
		return "Pause"
	case pb.IsLoading && pb.LoadProgress > 0:
		return fmt.Sprintf("Chargement... %d%%", pb.LoadProgress)
	case pb.IsLoading:
		return "Chargement..."
	default:
		return "Play"
	}
}

func ratio(pos, total int64) float64 {
	if total <= 0 || pos <= 0 {
		return 0
	}
	if pos >= total {
		return 1
	}
	return float64(pos) / float64(total)
}

func formatMillis(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	sec := ms / 1000
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}
