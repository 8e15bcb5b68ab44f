package ui

import (
	"context"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"SharedBoard/internal/board"
	"SharedBoard/internal/export"
	"SharedBoard/internal/store"
	"SharedBoard/internal/surface"
)

type AppOptions struct {
	Title string
	// Link is shown in the status bar: the share link on a host, the host
	// address on a client.
	Link   string
	Board  *board.Board
	Raster *surface.Raster
	Logger zerolog.Logger
}

// RunApp opens the board window and blocks until it is closed.
func RunApp(ctx context.Context, opts AppOptions) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a := app.NewWithID("io.sharedboard")
	w := a.NewWindow(opts.Title)
	w.Resize(fyne.NewSize(1024, 768))

	bw := NewBoardWidget(opts.Board, opts.Raster)
	status := widget.NewLabel("Ready")
	opts.Board.OnRepaint(func() {
		bw.Repaint()
		text := statusText(opts.Board.Status(), opts.Link)
		fyne.Do(func() { status.SetText(text) })
	})

	f := &files{board: opts.Board, raster: opts.Raster, window: w, logger: opts.Logger, status: status}
	toolbar := NewToolbar(opts.Board, opts.Logger,
		widget.NewButtonWithIcon("PNG", theme.MediaPhotoIcon(), f.exportPNG),
		widget.NewButtonWithIcon("PDF", theme.DocumentPrintIcon(), f.exportPDF),
		widget.NewButtonWithIcon("Save", theme.DocumentSaveIcon(), f.save),
		widget.NewButtonWithIcon("Load", theme.FolderOpenIcon(), f.load),
	)

	w.SetContent(container.NewBorder(toolbar, status, nil, nil, bw))

	go func() {
		if err := opts.Board.Run(ctx); err != nil && ctx.Err() == nil {
			opts.Logger.Error().Err(err).Msg("board loop stopped")
		}
	}()
	w.SetOnClosed(cancel)
	w.ShowAndRun()
}

// files handles the export and save dialogs.
type files struct {
	board  *board.Board
	raster *surface.Raster
	window fyne.Window
	logger zerolog.Logger
	status *widget.Label
}

func (f *files) frame() export.Frame {
	w, h := f.raster.Size()
	return export.Frame{Width: w, Height: h, Offset: f.board.Status().Offset}
}

func (f *files) report(what string, err error) {
	if err != nil {
		f.logger.Error().Err(err).Msg(what)
		dialog.ShowError(err, f.window)
		return
	}
	f.logger.Info().Msg(what)
	f.status.SetText(what)
}

func (f *files) saveDialog(ext string, write func(fyne.URIWriteCloser) error) {
	d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil {
			f.report("save dialog", err)
			return
		}
		if wc == nil {
			return
		}
		werr := write(wc)
		if cerr := wc.Close(); werr == nil {
			werr = cerr
		}
		f.report(fmt.Sprintf("wrote %s", wc.URI().Name()), werr)
	}, f.window)
	d.SetFileName("board" + ext)
	d.SetFilter(storage.NewExtensionFileFilter([]string{ext}))
	d.Show()
}

func (f *files) exportPNG() {
	f.saveDialog(".png", func(w fyne.URIWriteCloser) error {
		return export.PNG(w, f.board.Entries(), f.frame())
	})
}

func (f *files) exportPDF() {
	f.saveDialog(".pdf", func(w fyne.URIWriteCloser) error {
		return export.WritePDF(w, f.board.Entries(), f.frame())
	})
}

func (f *files) save() {
	f.saveDialog(".json", func(w fyne.URIWriteCloser) error {
		return store.WriteJSON(w, f.board.Entries())
	})
}

func (f *files) load() {
	d := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			f.report("open dialog", err)
			return
		}
		if rc == nil {
			return
		}
		defer rc.Close()
		cmds, err := store.ReadJSON(rc)
		if err != nil {
			f.report("load drawing", err)
			return
		}
		f.board.Import(cmds)
		f.report(fmt.Sprintf("loaded %d strokes from %s", len(cmds), rc.URI().Name()), nil)
	}, f.window)
	d.SetFilter(storage.NewExtensionFileFilter([]string{".json"}))
	d.Show()
}
