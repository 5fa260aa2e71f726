// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package invariant

import (
	mock "github.com/stretchr/testify/mock"

	"go.kurento.org/media/mediaerror"
)

type MockViolationExecutor struct {
	mock.Mock
}

func (_m *MockViolationExecutor) Exec(_a0 mediaerror.ProtocolError) {
	_m.Called(_a0)
}

// NewMockViolationExecutor installs a mock executor for the duration of the
// test and restores the previous one on cleanup.
func NewMockViolationExecutor(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockViolationExecutor {
	mock := &MockViolationExecutor{}
	mock.Mock.Test(t)

	prev := SetViolationExecutor(mock)
	t.Cleanup(func() {
		SetViolationExecutor(prev)
		mock.AssertExpectations(t)
	})

	return mock
}
