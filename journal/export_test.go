package journal

// This file exists solely to let the external journal_test package
// (needed so recovery_test.go can import journal/faketxn without
// creating an import cycle) reach the unexported internals a couple of
// its white-box assertions depend on. Being a _test.go file, none of
// this is compiled into normal (non-test) builds of the package.

import "testing"

func ConfigForTest(t *testing.T) Config {
	return testConfig(t)
}

func (j *Journal) CurrentFD() int {
	return j.rot.currentFD()
}

func (j *Journal) ClosedTxnCount(idx int) int64 {
	return j.rot.closedTxn[idx].Load()
}

func (j *Journal) OpenTxnCount(idx int) int64 {
	return j.rot.openTxn[idx].Load()
}

func FileSizeForTest(path string) (int64, error) {
	f, err := openFile(path)
	if err != nil {
		return 0, err
	}
	defer f.close()
	return f.fileSize()
}

func TruncateFileForTest(path string, size int64) error {
	f, err := openFile(path)
	if err != nil {
		return err
	}
	defer f.close()
	return f.truncate(size)
}
