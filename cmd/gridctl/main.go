// gridctl - консольный клиент сетки: работает через локальную копию и
// синхронизирует правки с сервером.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"exercise_grid_go/config"
	"exercise_grid_go/grid"
	"exercise_grid_go/localstore"
	"exercise_grid_go/syncclient"

	"go.alis.build/alog"
)

var (
	tabFlag = flag.Int64("tab", 0, "id вкладки (по умолчанию первая)")
	outFlag = flag.String("o", "", "файл для команды image")
)

type command struct {
	usage string
	run   func(ctx context.Context, app *app, args []string) error
	// offline - команда не требует загрузки вкладок.
	offline bool
}

var commands = map[string]command{
	"tabs":          {usage: "tabs", run: cmdTabs},
	"show":          {usage: "show [-tab N]", run: cmdShow},
	"set":           {usage: "set [-tab N] ROW COL TEXT", run: cmdSet},
	"header":        {usage: "header [-tab N] ROW COL TEXT", run: cmdHeader},
	"rename-column": {usage: "rename-column [-tab N] COL LABEL", run: cmdRenameColumn},
	"push":          {usage: "push", run: cmdPush},
	"pull":          {usage: "pull", run: cmdPull},
	"images":        {usage: "images", run: cmdImages},
	"image":         {usage: "image [-o FILE] ID", run: cmdImage},
	"upload":        {usage: "upload FILE...", run: cmdUpload},
	"delete-image":  {usage: "delete-image ID", run: cmdDeleteImage},
	"flush":         {usage: "flush", run: cmdFlush, offline: true},
	"pending":       {usage: "pending", run: cmdPending, offline: true},
	"run":           {usage: "run", run: cmdRun, offline: true},
	"hash-password": {usage: "hash-password PASSWORD", run: cmdHashPassword, offline: true},
}

func usage() {
	fmt.Fprintln(os.Stderr, "Использование: gridctl [флаги] КОМАНДА [аргументы]")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  gridctl %s\n", commands[name].usage)
	}
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "gridctl: неизвестная команда %q\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}

	args, err := parseCommandFlags(flag.Arg(0), flag.Args()[1:])
	if err != nil {
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadClient()
	if err != nil {
		alog.Fatalf(ctx, "%v", err)
	}
	alog.SetLevel(cfg.LogLevel)

	a, err := newApp(ctx, cfg)
	if err != nil {
		alog.Fatalf(ctx, "%v", err)
	}
	defer a.close()

	if !cmd.offline {
		if err := a.start(ctx); err != nil {
			alog.Fatalf(ctx, "%v", err)
		}
	}
	if err := cmd.run(ctx, a, args); err != nil {
		fmt.Fprintf(os.Stderr, "gridctl %s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
}

// parseCommandFlags разбирает флаги, стоящие после имени команды
// (gridctl set -tab 3 ...), и возвращает оставшиеся аргументы.
func parseCommandFlags(name string, args []string) ([]string, error) {
	fs := flag.NewFlagSet("gridctl "+name, flag.ContinueOnError)
	fs.Int64Var(tabFlag, "tab", *tabFlag, "id вкладки (по умолчанию первая)")
	fs.StringVar(outFlag, "o", *outFlag, "файл для команды image")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}

// app связывает локальную копию, клиент и менеджер сетки.
type app struct {
	cfg     config.Client
	store   *localstore.SQLStore
	manager *grid.Manager
}

func newApp(ctx context.Context, cfg config.Client) (*app, error) {
	store, err := localstore.OpenSQLStore(ctx, cfg.LocalDBPath)
	if err != nil {
		return nil, err
	}
	remote := syncclient.New(syncclient.Endpoints{
		Tabs:   cfg.TabsURL,
		Cells:  cfg.CellsURL,
		Images: cfg.ImagesURL,
	}, syncclient.WithToken(cfg.Token), syncclient.WithTimeout(cfg.Timeout))

	m := grid.NewManager(store, remote,
		grid.WithBounds(grid.Bounds{Rows: cfg.Rows, Cols: cfg.Cols}),
		grid.WithNotifier(stderrNotifier{}),
	)
	return &app{cfg: cfg, store: store, manager: m}, nil
}

// start загружает вкладки и, если задан -tab, переключается на нее.
func (a *app) start(ctx context.Context) error {
	if err := a.manager.Start(ctx); err != nil {
		return err
	}
	if *tabFlag == 0 {
		return nil
	}
	if err := a.manager.SelectTab(ctx, *tabFlag); err != nil {
		return err
	}
	a.manager.Wait()
	return nil
}

func (a *app) close() {
	a.manager.Wait()
	if err := a.store.Close(); err != nil {
		alog.Warnf(context.Background(), "gridctl: закрытие локальной копии: %v", err)
	}
}

// stderrNotifier печатает уведомления для пользователя.
type stderrNotifier struct{}

func (stderrNotifier) Success(_ context.Context, msg string) { fmt.Fprintln(os.Stderr, okStyle.Render(msg)) }

func (stderrNotifier) Info(_ context.Context, msg string) { fmt.Fprintln(os.Stderr, msg) }

func (stderrNotifier) Error(ctx context.Context, msg string, err error) {
	alog.Debugf(ctx, "%s: %v", msg, err)
	fmt.Fprintln(os.Stderr, errStyle.Render(msg))
}
