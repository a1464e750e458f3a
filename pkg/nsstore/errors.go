package nsstore

import "github.com/fusexd/metacore/pkg/fusexerr"

func errNotFound(op string, inode uint64) error {
	return fusexerr.New(op, fusexerr.ENOENT, "entry not found")
}

func errExists(op, name string) error {
	return fusexerr.New(op, fusexerr.EEXIST, "entry already exists: "+name)
}

func errNotEmpty(op string) error {
	return fusexerr.New(op, fusexerr.ENOTEMPTY, "directory not empty")
}
