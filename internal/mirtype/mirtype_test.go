package mirtype

import "testing"

func TestScalarSlotCounts(t *testing.T) {
	cases := []struct {
		ty   *MirType
		want int
	}{
		{Felt(), 1},
		{Bool(), 1},
		{U32(), 2},
		{Unit(), 0},
		{Pointer(Felt()), 1},
	}
	for _, c := range cases {
		if got := SlotCount(c.ty); got != c.want {
			t.Errorf("SlotCount(%s) = %d, want %d", c.ty, got, c.want)
		}
	}
}

func TestTupleOffsets(t *testing.T) {
	// (felt, u32, felt) -> offsets 0, 1, 3
	ty := Tuple(Felt(), U32(), Felt())
	want := []int{0, 1, 3}
	for i, w := range want {
		if got := TupleOffset(ty, i); got != w {
			t.Errorf("TupleOffset(%d) = %d, want %d", i, got, w)
		}
	}
	if SlotCount(ty) != 4 {
		t.Errorf("expected tuple slot count 4, got %d", SlotCount(ty))
	}
}

func TestStructFieldOffsets(t *testing.T) {
	ty := Struct("P",
		StructField{Name: "x", Type: Felt()},
		StructField{Name: "y", Type: Felt()},
	)
	xOff, err := StructFieldOffset(ty, "x")
	if err != nil || xOff != 0 {
		t.Errorf("x offset = %d, %v; want 0, nil", xOff, err)
	}
	yOff, err := StructFieldOffset(ty, "y")
	if err != nil || yOff != 1 {
		t.Errorf("y offset = %d, %v; want 1, nil", yOff, err)
	}
	if _, err := StructFieldOffset(ty, "z"); err == nil {
		t.Error("expected error for missing field")
	}
}

func TestArrayOffsets(t *testing.T) {
	ty := Array(U32(), 4)
	if SlotCount(ty) != 8 {
		t.Errorf("expected array slot count 8, got %d", SlotCount(ty))
	}
	if ArrayElementOffset(ty, 3) != 6 {
		t.Errorf("expected element 3 offset 6, got %d", ArrayElementOffset(ty, 3))
	}
}

func TestContainsArray(t *testing.T) {
	plain := Struct("P", StructField{Name: "x", Type: Felt()})
	if ContainsArray(plain) {
		t.Error("plain struct should not contain an array")
	}
	nested := Struct("Q", StructField{Name: "a", Type: Array(Felt(), 3)})
	if !ContainsArray(nested) {
		t.Error("nested struct with array field should report ContainsArray")
	}
	deeplyNested := Tuple(Struct("R", StructField{Name: "a", Type: Tuple(Array(Felt(), 2))}))
	if !ContainsArray(deeplyNested) {
		t.Error("array nested at any depth should be detected")
	}
}

func TestPromotable(t *testing.T) {
	if !Promotable(Felt()) {
		t.Error("felt should be promotable")
	}
	if !Promotable(Tuple(Felt(), U32())) {
		t.Error("small tuple should be promotable")
	}
	if Promotable(Array(Felt(), 4)) {
		t.Error("arrays are never promoted")
	}
}

func TestEqual(t *testing.T) {
	a := Tuple(Felt(), U32())
	b := Tuple(Felt(), U32())
	c := Tuple(U32(), Felt())
	if !Equal(a, b) {
		t.Error("expected structurally equal tuples to be Equal")
	}
	if Equal(a, c) {
		t.Error("expected differently-ordered tuples to not be Equal")
	}
}
