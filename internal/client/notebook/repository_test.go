package notebook

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/inkpad/internal/client/storage"
	"github.com/iudanet/inkpad/internal/client/storage/boltdb"
	"github.com/iudanet/inkpad/internal/models"
)

// countingRequester records sync wake-ups
type countingRequester struct {
	calls atomic.Int64
}

func (c *countingRequester) RequestSync() {
	c.calls.Add(1)
}

// createTestRepo wires a repository over a real BoltDB store in a temp dir
func createTestRepo(t *testing.T) (*Repository, *boltdb.Storage, *countingRequester) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := boltdb.New(context.Background(), t.TempDir()+"/client.db", logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	repo, err := New(context.Background(), store, store, logger)
	require.NoError(t, err)

	requester := &countingRequester{}
	repo.SetSyncRequester(requester)
	return repo, store, requester
}

func TestRepository_CreateNotebook(t *testing.T) {
	ctx := context.Background()
	repo, store, requester := createTestRepo(t)

	nb, err := repo.Create(ctx, "Sketchbook", "#112233")
	require.NoError(t, err)

	assert.NotEmpty(t, nb.ID)
	assert.Equal(t, "Sketchbook", nb.Title)
	assert.Equal(t, "#112233", nb.CoverColor)

	// Новая тетрадь всегда с одной пустой страницей
	require.Len(t, nb.Pages, 1)
	assert.Equal(t, models.TemplateBlank, nb.Pages[0].Template)
	assert.False(t, nb.Pages[0].Drawing.Present())

	// Мутация зафиксирована в кэше и журнале
	cached, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 1)

	pending, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.ChangeCreate, pending[0].ChangeType)
	assert.Equal(t, models.EntityNotebook, pending[0].EntityType)
	assert.Equal(t, nb.ID, pending[0].EntityID)
	assert.NotEmpty(t, pending[0].Payload)

	// Синхронизация разбужена
	assert.Equal(t, int64(1), requester.calls.Load())
}

func TestRepository_CreateDefaults(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := createTestRepo(t)

	nb, err := repo.Create(ctx, "", "")
	require.NoError(t, err)

	// Пустое название допустимо, цвет подставляется дефолтный
	assert.Empty(t, nb.Title)
	assert.Equal(t, models.DefaultCoverColor, nb.CoverColor)
}

func TestRepository_CreateValidation(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := createTestRepo(t)

	longTitle := make([]rune, 129)
	for i := range longTitle {
		longTitle[i] = 'x'
	}

	tests := []struct {
		name  string
		title string
		color string
	}{
		{name: "title too long", title: string(longTitle)},
		{name: "malformed color", color: "blue"},
		{name: "short hex color", color: "#123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Create(ctx, tt.title, tt.color)
			assert.Error(t, err)
		})
	}

	assert.Empty(t, repo.List(ctx))
}

func TestRepository_Rename(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := createTestRepo(t)

	nb, err := repo.Create(ctx, "Old", "")
	require.NoError(t, err)
	before := nb.ModifiedAt

	require.NoError(t, repo.Rename(ctx, nb.ID, "New"))

	got, err := repo.Get(ctx, nb.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Title)
	// Каждая мутация строго двигает ModifiedAt вперед
	assert.True(t, got.ModifiedAt.After(before))

	assert.ErrorIs(t, repo.Rename(ctx, "missing", "X"), storage.ErrNotebookNotFound)
}

func TestRepository_SetCoverColor(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := createTestRepo(t)

	nb, err := repo.Create(ctx, "N", "")
	require.NoError(t, err)

	require.NoError(t, repo.SetCoverColor(ctx, nb.ID, "#AABBCC"))
	got, err := repo.Get(ctx, nb.ID)
	require.NoError(t, err)
	assert.Equal(t, "#AABBCC", got.CoverColor)

	assert.Error(t, repo.SetCoverColor(ctx, nb.ID, "not-a-color"))
}

func TestRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo, store, _ := createTestRepo(t)

	nb, err := repo.Create(ctx, "Doomed", "")
	require.NoError(t, err)
	require.NoError(t, repo.Select(ctx, nb.ID))

	require.NoError(t, repo.Delete(ctx, nb.ID))

	assert.Empty(t, repo.List(ctx))
	// Выбранная тетрадь сброшена вместе с удалением
	assert.Nil(t, repo.Selected(ctx))

	// Запись удаления без payload в хвосте журнала
	pending, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	last := pending[1]
	assert.Equal(t, models.ChangeDelete, last.ChangeType)
	assert.Equal(t, models.EntityNotebook, last.EntityType)
	assert.Equal(t, nb.ID, last.EntityID)
	assert.Empty(t, last.Payload)

	assert.ErrorIs(t, repo.Delete(ctx, nb.ID), storage.ErrNotebookNotFound)
}

func TestRepository_AddPage(t *testing.T) {
	ctx := context.Background()
	repo, store, _ := createTestRepo(t)

	nb, err := repo.Create(ctx, "N", "")
	require.NoError(t, err)

	page, err := repo.AddPage(ctx, nb.ID, models.TemplateGrid, "#FAFAFA")
	require.NoError(t, err)
	assert.Equal(t, models.TemplateGrid, page.Template)
	assert.Equal(t, "#FAFAFA", page.BackgroundColor)

	got, err := repo.Get(ctx, nb.ID)
	require.NoError(t, err)
	require.Len(t, got.Pages, 2)
	assert.Equal(t, page.ID, got.Pages[1].ID)

	// Страничная запись ссылается на родителя и несет его snapshot
	pending, err := store.ListAll(ctx)
	require.NoError(t, err)
	last := pending[len(pending)-1]
	assert.Equal(t, models.EntityPage, last.EntityType)
	assert.Equal(t, page.ID, last.EntityID)
	assert.Equal(t, nb.ID, last.ParentID)
	assert.Equal(t, nb.ID, last.NotebookID())
	assert.NotEmpty(t, last.Payload)

	_, err = repo.AddPage(ctx, nb.ID, "spiral", "")
	assert.Error(t, err)
}

func TestRepository_DeletePage(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := createTestRepo(t)

	nb, err := repo.Create(ctx, "N", "")
	require.NoError(t, err)
	firstPage := nb.Pages[0]

	// Последнюю страницу удалить нельзя
	err = repo.DeletePage(ctx, nb.ID, firstPage.ID)
	assert.ErrorIs(t, err, ErrLastPage)

	page, err := repo.AddPage(ctx, nb.ID, models.TemplateRuled, "")
	require.NoError(t, err)

	require.NoError(t, repo.DeletePage(ctx, nb.ID, firstPage.ID))

	got, err := repo.Get(ctx, nb.ID)
	require.NoError(t, err)
	require.Len(t, got.Pages, 1)
	assert.Equal(t, page.ID, got.Pages[0].ID)

	assert.ErrorIs(t, repo.DeletePage(ctx, nb.ID, "missing"), storage.ErrPageNotFound)
}

func TestRepository_ReorderPages(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := createTestRepo(t)

	nb, err := repo.Create(ctx, "N", "")
	require.NoError(t, err)
	p1 := nb.Pages[0]
	p2, err := repo.AddPage(ctx, nb.ID, models.TemplateGrid, "")
	require.NoError(t, err)
	p3, err := repo.AddPage(ctx, nb.ID, models.TemplateDotted, "")
	require.NoError(t, err)

	require.NoError(t, repo.ReorderPages(ctx, nb.ID, []string{p3.ID, p1.ID, p2.ID}))

	got, err := repo.Get(ctx, nb.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{p3.ID, p1.ID, p2.ID}, got.PageIDs())

	// Новый порядок обязан быть перестановкой текущего
	assert.Error(t, repo.ReorderPages(ctx, nb.ID, []string{p1.ID, p2.ID}))
	assert.Error(t, repo.ReorderPages(ctx, nb.ID, []string{p1.ID, p1.ID, p2.ID}))
	assert.ErrorIs(t, repo.ReorderPages(ctx, nb.ID, []string{p1.ID, p2.ID, "missing"}), storage.ErrPageNotFound)

	// Неудачная перестановка ничего не меняет
	got, err = repo.Get(ctx, nb.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{p3.ID, p1.ID, p2.ID}, got.PageIDs())
}

func TestRepository_UpdatePageDrawing(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := createTestRepo(t)

	nb, err := repo.Create(ctx, "N", "")
	require.NoError(t, err)
	pageID := nb.Pages[0].ID

	ink := models.NewBlob([]byte("stroke data"))
	require.NoError(t, repo.UpdatePageDrawing(ctx, nb.ID, pageID, ink))

	got, err := repo.Get(ctx, nb.ID)
	require.NoError(t, err)
	page, _ := got.FindPage(pageID)
	require.NotNil(t, page)
	assert.True(t, page.Drawing.Present())
	assert.Equal(t, []byte("stroke data"), page.Drawing.Bytes())

	// Очистка рисунка - запись отсутствующего blob
	require.NoError(t, repo.UpdatePageDrawing(ctx, nb.ID, pageID, models.AbsentBlob()))
	got, err = repo.Get(ctx, nb.ID)
	require.NoError(t, err)
	page, _ = got.FindPage(pageID)
	assert.False(t, page.Drawing.Present())
}

func TestRepository_UpdatePageThumbnail(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := createTestRepo(t)

	nb, err := repo.Create(ctx, "N", "")
	require.NoError(t, err)
	pageID := nb.Pages[0].ID

	require.NoError(t, repo.UpdatePageThumbnail(ctx, nb.ID, pageID, models.NewBlob([]byte("png"))))

	got, err := repo.Get(ctx, nb.ID)
	require.NoError(t, err)
	page, _ := got.FindPage(pageID)
	assert.True(t, page.Thumbnail.Present())
}

func TestRepository_ModifiedAtMonotonicAcrossRapidEdits(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := createTestRepo(t)

	nb, err := repo.Create(ctx, "N", "")
	require.NoError(t, err)

	prev := nb.ModifiedAt
	for i := 0; i < 50; i++ {
		require.NoError(t, repo.Rename(ctx, nb.ID, "N"))
		got, err := repo.Get(ctx, nb.ID)
		require.NoError(t, err)
		require.True(t, got.ModifiedAt.After(prev))
		prev = got.ModifiedAt
	}
}

func TestRepository_ReloadsCollectionAfterRestart(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dbPath := t.TempDir() + "/client.db"

	store, err := boltdb.New(ctx, dbPath, logger)
	require.NoError(t, err)

	repo, err := New(ctx, store, store, logger)
	require.NoError(t, err)

	nb, err := repo.Create(ctx, "Survives restart", "")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Рестарт процесса: новое хранилище, новый репозиторий
	reopened, err := boltdb.New(ctx, dbPath, logger)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, reopened.Close())
	}()

	repo2, err := New(ctx, reopened, reopened, logger)
	require.NoError(t, err)

	got, err := repo2.Get(ctx, nb.ID)
	require.NoError(t, err)
	assert.Equal(t, "Survives restart", got.Title)

	// Незафиксированное изменение пережило рестарт и дойдет до сервера
	pending, err := reopened.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, nb.ID, pending[0].EntityID)
}

func TestRepository_WatchDeliversUpdates(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := createTestRepo(t)

	ch, cancel := repo.Watch()
	defer cancel()

	nb, err := repo.Create(ctx, "Observed", "")
	require.NoError(t, err)

	collection := <-ch
	require.Len(t, collection, 1)
	assert.Equal(t, nb.ID, collection[0].ID)

	// Снимок для наблюдателя независим от живой коллекции
	collection[0].Title = "mutated"
	got, err := repo.Get(ctx, nb.ID)
	require.NoError(t, err)
	assert.Equal(t, "Observed", got.Title)
}

func TestRepository_PublishCollectionReplacesState(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := createTestRepo(t)

	nb, err := repo.Create(ctx, "Local", "")
	require.NoError(t, err)
	require.NoError(t, repo.Select(ctx, nb.ID))

	// Merge с другого устройства: локальная тетрадь исчезла, пришла новая
	incoming := models.NewNotebook("Merged", "")
	repo.PublishCollection([]*models.Notebook{incoming})

	list := repo.List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, incoming.ID, list[0].ID)

	// Выбор сброшен: открытой тетради больше нет
	assert.Nil(t, repo.Selected(ctx))
}

func TestRepository_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := createTestRepo(t)

	nb, err := repo.Create(ctx, "Original", "")
	require.NoError(t, err)

	got, err := repo.Get(ctx, nb.ID)
	require.NoError(t, err)
	got.Title = "mutated"
	got.Pages[0].Drawing = models.NewBlob([]byte("x"))

	fresh, err := repo.Get(ctx, nb.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", fresh.Title)
	assert.False(t, fresh.Pages[0].Drawing.Present())
}
