package data

const tabsTable = `
CREATE TABLE IF NOT EXISTS Tabs (
    Id INTEGER PRIMARY KEY AUTOINCREMENT,
    Name TEXT NOT NULL,
    Position INTEGER NOT NULL DEFAULT 0
);
`

const cellsTable = `
CREATE TABLE IF NOT EXISTS Cells (
    Id INTEGER PRIMARY KEY AUTOINCREMENT,
    TabId INTEGER NOT NULL,
    RowIndex INTEGER NOT NULL,
    ColIndex INTEGER NOT NULL,
    Content TEXT NOT NULL DEFAULT '',
    UpdatedAt DATETIME NOT NULL,
    UNIQUE (TabId, RowIndex, ColIndex)
);
`

// Header добавляется EnsureCellsSchemaUpgrade, чтобы старые базы тоже его получили.

const columnNamesTable = `
CREATE TABLE IF NOT EXISTS ColumnNames (
    TabId INTEGER NOT NULL,
    ColIndex INTEGER NOT NULL,
    Label TEXT NOT NULL,
    PRIMARY KEY (TabId, ColIndex)
);
`

const imagesTable = `
CREATE TABLE IF NOT EXISTS Images (
    Id INTEGER PRIMARY KEY AUTOINCREMENT,
    FileName TEXT NOT NULL,
    FileUrl TEXT NOT NULL,
    CreatedAt DATETIME NOT NULL
);
`

// LocalStorageSchema - таблица ключ-значение для локальной копии клиента.
const LocalStorageSchema = `
CREATE TABLE IF NOT EXISTS LocalStorage (
    Key TEXT PRIMARY KEY,
    Value BLOB NOT NULL,
    UpdatedAt DATETIME NOT NULL
);
`

// CacheStorageSchema - именованные кэши ответов. Seq задает порядок вставки,
// по нему и выбирается запись для вытеснения.
const CacheStorageSchema = `
CREATE TABLE IF NOT EXISTS Caches (
    Name TEXT PRIMARY KEY,
    CreatedAt DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS CacheEntries (
    Seq INTEGER PRIMARY KEY AUTOINCREMENT,
    CacheName TEXT NOT NULL,
    RequestKey TEXT NOT NULL,
    Status INTEGER NOT NULL,
    HeaderJson TEXT NOT NULL DEFAULT '{}',
    Body BLOB,
    StoredAt DATETIME NOT NULL,
    UNIQUE (CacheName, RequestKey),
    FOREIGN KEY (CacheName) REFERENCES Caches(Name) ON DELETE CASCADE
);
`

// GetAPISchema возвращает схему эталонного API.
func GetAPISchema() string {
	return tabsTable + cellsTable + columnNamesTable + imagesTable
}
