// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

type ErrSuite struct {
	suite.Suite
}

func (s *ErrSuite) TestCode() {
	err := WrapErrSessionNotFound(1)
	errors.Wrap(err, "failed to get session")
	s.ErrorIs(err, ErrSessionNotFound)
	s.Equal(Code(ErrSessionNotFound), Code(err))
	s.Equal(TimeoutCode, Code(context.DeadlineExceeded))
	s.Equal(CanceledCode, Code(context.Canceled))
	s.Equal(errUnexpected.errCode, Code(errUnexpected))
	s.Equal(int32(0), Code(nil))

	sameCodeErr := newRelayError("new error", ErrSessionNotFound.errCode, false)
	s.True(sameCodeErr.Is(ErrSessionNotFound))
}

func (s *ErrSuite) TestWrap() {
	// Service 相关错误。
	s.ErrorIs(WrapErrServiceNotReady("history", "initializing"), ErrServiceNotReady)
	s.ErrorIs(WrapErrServiceInternal("never throw out"), ErrServiceInternal)

	// Admission 相关错误。
	s.ErrorIs(WrapErrAdmissionWriterBlocked(2, 0), ErrAdmissionWriterBlocked)
	s.ErrorIs(WrapErrAdmissionReaderBlocked(1), ErrAdmissionReaderBlocked)
	s.ErrorIs(WrapErrChatNotWriter("READER"), ErrChatNotWriter)

	// Session 相关错误。
	s.ErrorIs(WrapErrSessionNotFound(7, "lookup"), ErrSessionNotFound)
	s.ErrorIs(WrapErrSessionDuplicate(7), ErrSessionDuplicate)
	s.ErrorIs(WrapErrSendQueueFull(7), ErrSendQueueFull)

	// History 相关错误。
	s.ErrorIs(WrapErrHistoryInit("chat_history.sqlite"), ErrHistoryInit)
	s.ErrorIs(WrapErrHistoryWrite("Anonymous"), ErrHistoryWrite)
	s.ErrorIs(WrapErrHistoryRead(500), ErrHistoryRead)

	// 参数相关错误。
	s.ErrorIs(WrapErrParameterInvalidMsg("port %d out of range", 70000), ErrParameterInvalid)
}

func (s *ErrSuite) TestIsRetryable() {
	s.True(IsRetryableErr(ErrHistoryWrite))
	s.True(IsRetryableErr(ErrServiceNotReady))
	s.False(IsRetryableErr(ErrAdmissionWriterBlocked))
	s.False(IsRetryableErr(errors.New("not a relay error")))
}

func (s *ErrSuite) TestErrorType() {
	s.Equal(InputError, GetErrorType(ErrChatNotWriter))
	s.Equal(SystemError, GetErrorType(ErrHistoryWrite))
	s.Equal(SystemError, GetErrorType(errors.New("unknown")))
}

func (s *ErrSuite) TestCombine() {
	var (
		errFirst  = errors.New("first")
		errSecond = errors.New("second")
		errThird  = errors.New("third")
	)

	err := Combine(errFirst, errSecond)
	s.True(errors.Is(err, errFirst))
	s.True(errors.Is(err, errSecond))
	s.False(errors.Is(err, errThird))

	s.Equal("first: second", err.Error())
}

func (s *ErrSuite) TestCombineWithNil() {
	err := errors.New("non-nil")

	s.Error(Combine(nil, err))
	s.Error(Combine(err, nil))
	s.NoError(Combine(nil, nil))
}

func (s *ErrSuite) TestCombineOnlyNil() {
	s.NoError(Combine(nil, nil))
}

func TestErrors(t *testing.T) {
	suite.Run(t, new(ErrSuite))
}
