package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"exercise_grid_go/auth"
	"exercise_grid_go/grid"
)

func cmdTabs(_ context.Context, a *app, _ []string) error {
	active, _ := a.manager.ActiveTab()
	fmt.Println(renderTabs(a.manager.Tabs(), active.ID))
	return nil
}

func cmdShow(ctx context.Context, a *app, _ []string) error {
	tab, ok := a.manager.ActiveTab()
	if !ok {
		return grid.ErrNoActiveTab
	}
	if tab.IsImageTab() {
		return cmdImages(ctx, a, nil)
	}
	bounds := a.manager.Bounds()
	labels := make([]string, bounds.Cols)
	for c := range labels {
		labels[c] = a.manager.ColumnLabel(c)
	}
	fmt.Println(renderGrid(tab, labels, a.manager.VisibleRows()))
	return nil
}

func cellArgs(args []string) (row, col int, text string, err error) {
	if len(args) < 3 {
		return 0, 0, "", errors.New("нужны ROW COL TEXT")
	}
	if row, err = strconv.Atoi(args[0]); err != nil {
		return 0, 0, "", fmt.Errorf("ROW: %w", err)
	}
	if col, err = strconv.Atoi(args[1]); err != nil {
		return 0, 0, "", fmt.Errorf("COL: %w", err)
	}
	return row, col, strings.Join(args[2:], " "), nil
}

// Правка остается в локальной копии и очереди даже при ошибке сети.
func cmdSet(ctx context.Context, a *app, args []string) error {
	row, col, text, err := cellArgs(args)
	if err != nil {
		return err
	}
	return a.manager.SaveCell(ctx, row, col, text)
}

func cmdHeader(ctx context.Context, a *app, args []string) error {
	row, col, text, err := cellArgs(args)
	if err != nil {
		return err
	}
	return a.manager.SaveHeader(ctx, row, col, text)
}

func cmdRenameColumn(ctx context.Context, a *app, args []string) error {
	if len(args) < 1 {
		return errors.New("нужен COL")
	}
	col, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("COL: %w", err)
	}
	return a.manager.RenameColumn(ctx, col, strings.Join(args[1:], " "))
}

func cmdPush(ctx context.Context, a *app, _ []string) error {
	req, err := a.manager.SyncAllToServer(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Отправлено ячеек: %d\n", len(req.Cells))
	return nil
}

func cmdPull(ctx context.Context, a *app, args []string) error {
	if err := a.manager.SyncAllFromServer(ctx); err != nil {
		return err
	}
	return cmdShow(ctx, a, args)
}

func cmdImages(ctx context.Context, a *app, _ []string) error {
	images, err := a.manager.Images(ctx)
	if err != nil {
		return err
	}
	fmt.Println(renderImages(images))
	return nil
}

func parseID(args []string) (int64, error) {
	if len(args) < 1 {
		return 0, errors.New("нужен ID")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ID: %w", err)
	}
	return id, nil
}

func cmdImage(ctx context.Context, a *app, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	url, err := a.manager.ImageURL(ctx, id)
	if err != nil {
		return err
	}
	if *outFlag == "" {
		fmt.Println(url)
		return nil
	}
	raw, err := grid.DecodeDataURL(url)
	if err != nil {
		return err
	}
	return os.WriteFile(*outFlag, raw, 0o644)
}

func cmdUpload(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return errors.New("нужен хотя бы один FILE")
	}
	files := make([]grid.ImageUpload, 0, len(args))
	for _, path := range args {
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, grid.ImageUpload{
			FileName: filepath.Base(path),
			DataURL:  grid.DataURL(http.DetectContentType(raw), raw),
		})
	}
	report, err := a.manager.UploadImages(ctx, files)
	for _, img := range report.Uploaded {
		fmt.Printf("%d\t%s\n", img.ID, img.FileName)
	}
	return err
}

func cmdDeleteImage(ctx context.Context, a *app, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	return a.manager.DeleteImage(ctx, id)
}

func cmdFlush(ctx context.Context, a *app, _ []string) error {
	n, err := a.manager.Outbox().Drain(ctx)
	fmt.Printf("Отправлено правок: %d, осталось: %d\n", n, a.manager.Outbox().Len())
	return err
}

func cmdPending(_ context.Context, a *app, _ []string) error {
	pending, err := a.manager.Outbox().Pending()
	if err != nil {
		return err
	}
	fmt.Println(renderPending(pending))
	return nil
}

// cmdRun досылает очередь правок по таймеру до сигнала остановки.
func cmdRun(ctx context.Context, a *app, _ []string) error {
	err := a.manager.Outbox().Run(ctx, a.cfg.FlushEvery)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func cmdHashPassword(_ context.Context, _ *app, args []string) error {
	if len(args) != 1 {
		return errors.New("нужен PASSWORD")
	}
	hash, err := auth.HashPassword(args[0])
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
