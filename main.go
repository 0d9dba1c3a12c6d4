// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// qrshare sends a single file to a peer paired through a QR-coded URL.
package main

import "qrshare/cmd"

func main() {
	cmd.Execute()
}
