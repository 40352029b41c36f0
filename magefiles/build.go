//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles the testbed binary into bin/.
func (Build) Binary() error {
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/decals", "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the full test suite.
func (Build) Test() error {
	if _, err := executeCmd("go", withArgs("test", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs go vet across the module.
func (Build) Vet() error {
	if _, err := executeCmd("go", withArgs("vet", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}
