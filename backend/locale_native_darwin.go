//go:build darwin

package backend

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Foundation
#include <stdlib.h>
#import <Foundation/Foundation.h>

// 優先言語を改行区切りで返す
static char* PreferredLanguages() {
	@autoreleasepool {
		NSArray<NSString *> *languages = [NSLocale preferredLanguages];
		if (languages == nil || [languages count] == 0) {
			return NULL;
		}
		NSString *joined = [languages componentsJoinedByString:@"\n"];
		const char *utf8 = [joined UTF8String];
		if (utf8 == NULL) {
			return NULL;
		}
		return strdup(utf8);
	}
}
*/
import "C"

import (
	"strings"
	"unsafe"
)

// detectNativeSystemLocales はmacOSの優先言語を優先順に返す
func detectNativeSystemLocales() []string {
	joined := C.PreferredLanguages()
	if joined == nil {
		return nil
	}
	defer C.free(unsafe.Pointer(joined))
	return strings.Split(C.GoString(joined), "\n")
}
