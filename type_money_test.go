package papertrade

import "testing"

func TestMoney_Arithmetic(t *testing.T) {
	if got := USD(10).Add(USD(2.5)); !got.Equal(USD(12.5)) {
		t.Errorf("10+2.5 = %s", got)
	}
	if got := USD(10).Sub(USD(2.5)); !got.Equal(USD(7.5)) {
		t.Errorf("10-2.5 = %s", got)
	}
	if got := USD(10).Mul(Q(3)); !got.Equal(USD(30)) {
		t.Errorf("10*3 = %s", got)
	}
	if got := USD(30).DivPrice(USD(10)); !got.Equal(Q(3)) {
		t.Errorf("30/$10 = %s", got)
	}
}

func TestMoney_WeakEmptyCurrency(t *testing.T) {
	got := M(10, "").Add(USD(5))
	if got.Currency() != "USD" {
		t.Errorf("currency = %q, want USD adopted from the other operand", got.Currency())
	}

	defer func() {
		if recover() == nil {
			t.Error("mismatched currencies should panic")
		}
	}()
	USD(1).Add(M(1, "EUR"))
}

func TestMoney_String(t *testing.T) {
	if got := USD(1234.5).String(); got != "$1,234.50" {
		t.Errorf("String = %q", got)
	}
	if got := USD(50).SignedString(); got != "+$50.00" {
		t.Errorf("SignedString = %q", got)
	}
	if got := USD(0).SignedString(); got != "-" {
		t.Errorf("zero SignedString = %q", got)
	}
}

func TestPercent_Strings(t *testing.T) {
	if got := Percent(16.666).SignedString(); got != "+16.67%" {
		t.Errorf("SignedString = %q", got)
	}
	if got := Percent(-15).String(); got != "-15.00%" {
		t.Errorf("String = %q", got)
	}
	if got := Percent(0).SignedString(); got != "-" {
		t.Errorf("zero SignedString = %q", got)
	}
}

func TestQuantity_MinAndClamping(t *testing.T) {
	if got := Q(250).Min(Q(100)); !got.Equal(Q(100)) {
		t.Errorf("min(250,100) = %s", got)
	}
	if got := Q(50).Min(Q(100)); !got.Equal(Q(50)) {
		t.Errorf("min(50,100) = %s", got)
	}
}
