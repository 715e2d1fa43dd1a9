package currency

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFormat(t *testing.T) {
	Convey("Given amounts in several currencies", t, func() {
		So(Format(199.99, "USD"), ShouldEqual, "$199.99")
		So(Format(349, "usd"), ShouldEqual, "$349.00")
		So(Format(1299.5, "USD"), ShouldEqual, "$1,299.50")
		So(Format(1500000, "IDR"), ShouldEqual, "IDR 1,500,000")
		So(Format(-42.129, "EUR"), ShouldEqual, "-€42.13")
		So(Format(12, "CHF"), ShouldEqual, "CHF 12.00")
	})

	Convey("Given digit strings", t, func() {
		So(addThousandsSeparator("1", ","), ShouldEqual, "1")
		So(addThousandsSeparator("1234", ","), ShouldEqual, "1,234")
		So(addThousandsSeparator("123456", ","), ShouldEqual, "123,456")
		So(addThousandsSeparator("1234567", ","), ShouldEqual, "1,234,567")
	})
}
