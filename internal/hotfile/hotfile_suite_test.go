package hotfile_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestHotFile(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, t.Name())
}
