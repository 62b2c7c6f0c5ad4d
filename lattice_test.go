// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fixpoint_test

import (
	"testing"

	"code.hybscloud.com/fixpoint"
)

func TestChainKindSpec(t *testing.T) {
	k := fixpoint.MustKind(fixpoint.ChainKindSpec(freshName("Chain"), 0, 100))
	if k.Bottom() != 0 || k.Top() != 100 {
		t.Fatalf("bounds %v/%v", k.Bottom(), k.Top())
	}
	if got := k.Meet(30, 60); got != 30 {
		t.Fatalf("meet = %v, want 30", got)
	}
	if !k.LessOrEqual(30, 60) || k.LessOrEqual(60, 30) {
		t.Fatal("chain order broken")
	}
}

func TestChainKindSpecStrings(t *testing.T) {
	k := fixpoint.MustKind(fixpoint.ChainKindSpec(freshName("ChainStr"), "a", "z"))
	if got := k.Meet("m", "d"); got != "d" {
		t.Fatalf("meet = %v, want d", got)
	}
}

func TestChainKindSpecRejectsInvertedBounds(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("inverted bounds did not panic")
		}
	}()
	fixpoint.ChainKindSpec(freshName("Bad"), 10, 0)
}

func TestReversedChainKindSpec(t *testing.T) {
	k := fixpoint.MustKind(fixpoint.ReversedChainKindSpec(freshName("Rev"), 64, 0))
	if k.Bottom() != 64 || k.Top() != 0 {
		t.Fatalf("bounds %v/%v", k.Bottom(), k.Top())
	}
	// Numerically larger counts are lower in the lattice.
	if got := k.Meet(10, 20); got != 20 {
		t.Fatalf("meet = %v, want 20", got)
	}
	if !k.LessOrEqual(20, 10) || k.LessOrEqual(10, 20) {
		t.Fatal("reversed order broken")
	}
}

func TestFlagKindSpec(t *testing.T) {
	k := fixpoint.MustKind(fixpoint.FlagKindSpec(freshName("Flag"), "Impure", "Pure"))
	if got := k.Meet("Pure", "Pure"); got != "Pure" {
		t.Fatalf("meet(Pure, Pure) = %v", got)
	}
	if got := k.Meet("Pure", "Impure"); got != "Impure" {
		t.Fatalf("meet(Pure, Impure) = %v", got)
	}
	if !k.LessOrEqual("Impure", "Pure") {
		t.Fatal("bottom must be below top")
	}
}
