// sirius: molecular formula identification from MS and MS/MS data.
// Copyright (c) 2016-2018 haihaba.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.

// You should have received a copy of the GNU Lesser General Public
// License along with this program. If not, see
// <https://github.com/haihaba/sirius/blob/master/LICENSE.txt>.

package sirius

import "log"

// A Progress observer receives updates during long computations.
// Implementations must tolerate concurrent Update calls.
type Progress interface {
	Init(max int)
	Update(current, max int, message string)
	Finished()
	Info(message string)
}

// QuietProgress ignores all updates.
type QuietProgress struct{}

func (QuietProgress) Init(int)                {}
func (QuietProgress) Update(int, int, string) {}
func (QuietProgress) Finished()               {}
func (QuietProgress) Info(string)             {}

// LogProgress writes updates to the standard logger.
type LogProgress struct{}

func (LogProgress) Init(int) {}

func (LogProgress) Update(current, max int, message string) {
	log.Printf("%d/%d %v", current, max, message)
}

func (LogProgress) Finished() {}

func (LogProgress) Info(message string) {
	log.Println(message)
}
