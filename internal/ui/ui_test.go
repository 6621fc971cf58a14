package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/tasks"
	tu "github.com/desertthunder/anisync/internal/testing"
)

func newTestModel(t *testing.T) (*Model, *tu.FakeCatalog) {
	t.Helper()

	media := tu.NewFakeMediaServer()
	media.Folders = []models.Library{{Name: "Anime", CollectionType: "tvshows", ItemID: "anime"}}
	media.AddSeries("anime", models.SeriesRecord{ID: "s1", Name: "Mushishi", ProviderIDs: map[string]string{"AniList": "457"}},
		models.EpisodeProgress{SeasonNumber: 1, EpisodeNumber: 1, IsPlayed: true},
		models.EpisodeProgress{SeasonNumber: 1, EpisodeNumber: 2, IsPlayed: true},
	)
	media.AddSeries("anime", models.SeriesRecord{ID: "s2", Name: "Nowhere"},
		models.EpisodeProgress{SeasonNumber: 1, EpisodeNumber: 1, IsPlayed: true},
	)

	catalog := tu.NewFakeCatalog()
	catalog.AddMedia(457, "Mushi-shi")

	engine := tasks.NewEngine(tasks.EngineOpts{
		Media:   media,
		Catalog: catalog,
		Ledger:  &tu.MemoryLedger{},
		Pacing:  -1,
		Trigger: models.TriggerTUI,
	})

	m := NewModel(context.Background(), Options{Media: media, Engine: engine, User: "alice", UserID: "u1", AutoAdd: true})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, catalog
}

// run executes cmd and feeds its message back into the model until cmd is nil or a sync completes.
func run(m *Model, cmd tea.Cmd) {
	for cmd != nil {
		msg := cmd()
		if batch, ok := msg.(tea.BatchMsg); ok {
			for _, c := range batch {
				if c == nil {
					continue
				}
				if inner, ok := c().(Msg); ok {
					_, cmd = m.Update(inner)
					run(m, cmd)
				}
			}
			return
		}
		if _, ok := msg.(Msg); !ok {
			return
		}
		_, cmd = m.Update(msg)
	}
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestModelFlow(t *testing.T) {
	m, catalog := newTestModel(t)

	run(m, m.Init())
	if m.view != LibraryListView || len(m.libraryList.Items()) != 1 {
		t.Fatalf("expected library list with one item, got view %d", m.view)
	}

	_, cmd := m.Update(keyMsg("enter"))
	run(m, cmd)
	if m.view != SeriesListView || len(m.series) != 2 {
		t.Fatalf("expected series preview with 2 series, got view %d (%d series)", m.view, len(m.series))
	}

	m.Update(keyMsg("enter"))
	if m.view != ConfirmView {
		t.Fatalf("expected confirm view, got %d", m.view)
	}
	if out := m.View(); !strings.Contains(out, "1 linked to AniList, 1 to search") {
		t.Errorf("unexpected confirm view:\n%s", out)
	}

	_, cmd = m.Update(keyMsg("y"))
	run(m, cmd)
	if m.view != ResultView {
		t.Fatalf("expected result view, got %d", m.view)
	}
	if len(m.Results()) != 2 {
		t.Fatalf("expected 2 results, got %d", len(m.Results()))
	}
	if entry, ok := catalog.Entry(457); !ok || entry.Progress != 2 {
		t.Errorf("expected progress 2, got %+v (%v)", entry, ok)
	}

	out := m.View()
	if !strings.Contains(out, "Nowhere") || !strings.Contains(out, "No AniList match") {
		t.Errorf("expected unmatched series in results:\n%s", out)
	}

	m.Update(keyMsg("r"))
	if m.view != LibraryListView || m.Results() != nil {
		t.Error("expected restart to return to the library list")
	}
}

func TestModelConfirmDeclined(t *testing.T) {
	m, _ := newTestModel(t)
	run(m, m.Init())
	_, cmd := m.Update(keyMsg("enter"))
	run(m, cmd)
	m.Update(keyMsg("enter"))

	m.Update(keyMsg("n"))
	if m.view != SeriesListView {
		t.Errorf("expected series list after declining, got %d", m.view)
	}
	m.Update(keyMsg("esc"))
	if m.view != LibraryListView {
		t.Errorf("expected library list after esc, got %d", m.view)
	}
}

func TestModelErrors(t *testing.T) {
	m, _ := newTestModel(t)

	m.Update(librariesFetchedMsg(nil, errors.New("connection refused")))
	if m.Err() == nil || !strings.Contains(m.View(), "connection refused") {
		t.Errorf("expected error view, got %q", m.View())
	}

	m, _ = newTestModel(t)
	m.Update(syncCompleteMsg(nil, errors.New("library not found")))
	if m.view != ResultView || !strings.Contains(m.View(), "Sync failed: library not found") {
		t.Errorf("expected failed result view, got %q", m.View())
	}
}
